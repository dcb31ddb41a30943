// Package platform resolves where the tracker keeps its files.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	appDirName = "supmap-tracker"

	// TrackFileName is the fixed name of the persisted track log.
	TrackFileName = "gpstrack.dat"
	// SettingsFileName is the fixed name of the file-backed settings store.
	SettingsFileName = "settings.yaml"
)

// WritableDir returns a directory the tracker can write to, creating it if
// needed. An empty dir resolves to the user configuration directory.
func WritableDir(dir string) (string, error) {
	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("resolving user config directory: %w", err)
		}
		dir = filepath.Join(configDir, appDirName)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}

	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return "", fmt.Errorf("data directory %q is not writable: %w", dir, err)
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	return dir, nil
}

func TrackFilePath(dir string) string {
	return filepath.Join(dir, TrackFileName)
}

func SettingsFilePath(dir string) string {
	return filepath.Join(dir, SettingsFileName)
}
