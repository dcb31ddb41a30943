package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")

	s := NewFileStore(path)
	require.NoError(t, s.Load())

	_, err := s.Get(ctx, "GpsTrackingEnabled")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "GpsTrackingEnabled", "true"))
	require.NoError(t, s.Set(ctx, "GpsTrackingDuration", "12"))
	assert.NoFileExists(t, path+".tmp")

	reloaded := NewFileStore(path)
	require.NoError(t, reloaded.Load())
	v, err := reloaded.Get(ctx, "GpsTrackingDuration")
	require.NoError(t, err)
	assert.Equal(t, "12", v)
}

func TestFileStore_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not: [valid"), 0o644))

	s := NewFileStore(path)
	assert.Error(t, s.Load())

	// the store stays usable and the next write replaces the bad file
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", "v"))
	reloaded := NewFileStore(path)
	require.NoError(t, reloaded.Load())
	v, err := reloaded.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestFileStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s := NewFileStore(path)
	require.NoError(t, s.Load())
	require.NoError(t, s.Set(context.Background(), "k", "v"))
}

func TestFileStore_SetFailureKeepsPreviousValue(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	// the parent "directory" is a regular file, so saving always fails
	s := NewFileStore(filepath.Join(blocker, "settings.yaml"))

	assert.Error(t, s.Set(ctx, "k", "v"))
	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_NullDocument(t *testing.T) {
	ctx := context.Background()
	for _, doc := range []string{"null\n", "~\n", ""} {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

		s := NewFileStore(path)
		require.NoError(t, s.Load(), "document %q", doc)

		_, err := s.Get(ctx, "GpsTrackingEnabled")
		assert.ErrorIs(t, err, ErrNotFound)
		require.NoError(t, s.Set(ctx, "GpsTrackingEnabled", "true"))

		reloaded := NewFileStore(path)
		require.NoError(t, reloaded.Load())
		v, err := reloaded.Get(ctx, "GpsTrackingEnabled")
		require.NoError(t, err)
		assert.Equal(t, "true", v)
	}
}
