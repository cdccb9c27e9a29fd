package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/studytrack/internal/stats"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot entries, targets, schedule and profile",
		Args:  cobra.NoArgs,
		RunE:  runBackupCmd,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE:  runBackupListCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "restore ID",
		Short: "Replace the current collections with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runBackupRestoreCmd,
	})
	return cmd
}

func runBackupCmd(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	_, info, err := env.tracker.Backup(cmd.Context(), env.tracker.Load())
	if err != nil {
		return err
	}
	return writeLines(cmd, fmt.Sprintf("Stored snapshot %s (%d entries).", info.ID, info.Entries))
}

func runBackupListCmd(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	snapshots, err := env.tracker.Snapshots(cmd.Context())
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		return writeLines(cmd, "No snapshots stored.")
	}
	rows := make([][]string, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, []string{
			s.ID,
			s.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(s.Entries),
			strconv.Itoa(s.SizeBytes),
		})
	}
	return writeLines(cmd, stats.FormatTable([]string{"ID", "Created", "Entries", "Bytes"}, rows, map[int]bool{2: true, 3: true})...)
}

func runBackupRestoreCmd(cmd *cobra.Command, args []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	state, err := env.tracker.Restore(cmd.Context(), env.tracker.Load(), args[0])
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	return writeLines(cmd, fmt.Sprintf("Restored snapshot %s (%d entries).", args[0], len(state.Entries)))
}
