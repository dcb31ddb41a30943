// Package settings provides the key-value store backing the tracker
// settings, with typed accessors that fall back to defaults.
package settings

import (
	"context"
	"errors"
	"strconv"
)

// ErrNotFound is returned by Store.Get for a key that was never set.
var ErrNotFound = errors.New("settings: key not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Bool returns the boolean stored under key, or def if it is missing or
// cannot be read.
func Bool(ctx context.Context, s Store, key string, def bool) bool {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func SetBool(ctx context.Context, s Store, key string, v bool) error {
	return s.Set(ctx, key, strconv.FormatBool(v))
}

// Uint returns the unsigned integer stored under key, or def if it is
// missing or cannot be read.
func Uint(ctx context.Context, s Store, key string, def uint32) uint32 {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return def
	}
	return uint32(v)
}

func SetUint(ctx context.Context, s Store, key string, v uint32) error {
	return s.Set(ctx, key, strconv.FormatUint(uint64(v), 10))
}
