package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/studytrack/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# studytrack configuration
# Uncomment a value to enable it. CLI flags override config values.

[data]
# dir = %q
# keep-snapshots = %d     # Snapshots kept after each backup (0 keeps all)

[log]
# level = %q              # debug, info, warn, error
# file = %q
# max-size-mb = 10

[auth]
# max-attempts = 5        # Failed logins before the account locks
# lock-minutes = 30
# token-hours = 24

[notify]
# email = "you@example.com"
# smtp-server = "smtp.example.com"
# smtp-port = 587
# smtp-username = ""
# smtp-password = ""
# interval-seconds = 60   # How often due notifications are checked
# timeout-seconds = 30    # Per-send timeout
# per-minute = 0          # Delivery cap (0 is unlimited)

[stats]
# trend-window = %d        # Moving average window
`,
		config.DefaultDataDir(),
		defaultKeepSnapshots,
		defaultLogLevel,
		config.DefaultLogPath(),
		defaultTrendWindow,
	)
}
