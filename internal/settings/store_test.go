package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, error) { return "", errors.New("boom") }
func (failingStore) Set(context.Context, string, string) error   { return errors.New("boom") }

func TestTypedAccessors(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "settings.yaml"))

	assert.False(t, Bool(ctx, s, "enabled", false))
	assert.True(t, Bool(ctx, s, "enabled", true))
	assert.EqualValues(t, 24, Uint(ctx, s, "hours", 24))

	require.NoError(t, SetBool(ctx, s, "enabled", true))
	require.NoError(t, SetUint(ctx, s, "hours", 6))
	assert.True(t, Bool(ctx, s, "enabled", false))
	assert.EqualValues(t, 6, Uint(ctx, s, "hours", 24))
}

func TestTypedAccessors_FallBackOnBadValues(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "settings.yaml"))

	require.NoError(t, s.Set(ctx, "enabled", "maybe"))
	require.NoError(t, s.Set(ctx, "hours", "-3"))
	assert.False(t, Bool(ctx, s, "enabled", false))
	assert.EqualValues(t, 24, Uint(ctx, s, "hours", 24))
}

func TestTypedAccessors_FallBackOnReadFailure(t *testing.T) {
	ctx := context.Background()
	assert.True(t, Bool(ctx, failingStore{}, "enabled", true))
	assert.EqualValues(t, 12, Uint(ctx, failingStore{}, "hours", 12))
	assert.Error(t, SetBool(ctx, failingStore{}, "enabled", true))
}
