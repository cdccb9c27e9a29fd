// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Data   DataConfig   `toml:"data"`
	Log    LogConfig    `toml:"log"`
	Auth   AuthConfig   `toml:"auth"`
	Notify NotifyConfig `toml:"notify"`
	Stats  StatsConfig  `toml:"stats"`
}

// DataConfig maps storage settings.
type DataConfig struct {
	Dir           *string `toml:"dir"`
	KeepSnapshots *int    `toml:"keep-snapshots"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level     *string `toml:"level"`
	File      *string `toml:"file"`
	MaxSizeMB *int    `toml:"max-size-mb"`
}

// AuthConfig maps account lockout and token settings.
type AuthConfig struct {
	MaxAttempts *int `toml:"max-attempts"`
	LockMinutes *int `toml:"lock-minutes"`
	TokenHours  *int `toml:"token-hours"`
}

// NotifyConfig maps notification delivery settings.
type NotifyConfig struct {
	Email           *string `toml:"email"`
	SMTPServer      *string `toml:"smtp-server"`
	SMTPPort        *int    `toml:"smtp-port"`
	SMTPUsername    *string `toml:"smtp-username"`
	SMTPPassword    *string `toml:"smtp-password"`
	IntervalSeconds *int    `toml:"interval-seconds"`
	TimeoutSeconds  *int    `toml:"timeout-seconds"`
	PerMinute       *int    `toml:"per-minute"`
}

// StatsConfig maps report settings.
type StatsConfig struct {
	TrendWindow *int `toml:"trend-window"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
