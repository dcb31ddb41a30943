package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritableDir_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	got, err := WritableDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)
	assert.DirExists(t, dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file is removed")
}

func TestWritableDir_FailsOnFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := WritableDir(file)
	assert.Error(t, err)
}

func TestWritableDir_DefaultsToUserConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("HOME", home)

	got, err := WritableDir("")
	require.NoError(t, err)
	assert.Equal(t, appDirName, filepath.Base(got))
}

func TestFilePaths(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "gpstrack.dat"), TrackFilePath("data"))
	assert.Equal(t, filepath.Join("data", "settings.yaml"), SettingsFilePath("data"))
}
