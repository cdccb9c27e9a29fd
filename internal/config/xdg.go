// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

const appName = "studytrack"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// XDGStateHome returns the XDG state home or a default fallback.
func XDGStateHome() string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "state")
}

// DefaultDataDir returns the directory holding the JSON collections.
func DefaultDataDir() string {
	return filepath.Join(XDGDataHome(), appName)
}

// DefaultArchivePath returns the SQLite snapshot archive path inside dataDir.
func DefaultArchivePath(dataDir string) string {
	return filepath.Join(dataDir, "snapshots.db")
}

// DefaultSecretKeyPath returns the token signing key path inside dataDir.
func DefaultSecretKeyPath(dataDir string) string {
	return filepath.Join(dataDir, "secret.key")
}

// DefaultSessionPath returns where the last issued login token is kept.
func DefaultSessionPath() string {
	return filepath.Join(XDGStateHome(), appName, "session")
}

// DefaultLogPath returns the rotated log file path.
func DefaultLogPath() string {
	return filepath.Join(XDGStateHome(), appName, appName+".log")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}
