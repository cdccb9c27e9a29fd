package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/studytrack/internal/app"
	"github.com/verte-zerg/studytrack/internal/auth"
	"github.com/verte-zerg/studytrack/internal/config"
	"github.com/verte-zerg/studytrack/internal/logging"
	"github.com/verte-zerg/studytrack/internal/store"
)

// env holds what every command needs: merged config, logger, store and tracker.
type env struct {
	cfg     config.FileConfig
	log     *zap.Logger
	dataDir string
	store   *store.Store
	archive *store.Archive
	tracker *app.Tracker
}

func openEnv(cmd *cobra.Command) (*env, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	dataDir := rootDataDir
	applyStringConfig(cmd, "data-dir", &dataDir, fileCfg.Data.Dir)
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	logFile := rootLogFile
	applyStringConfig(cmd, "log-file", &logFile, fileCfg.Log.File)
	if logFile == "" {
		logFile = config.DefaultLogPath()
	}
	logLevel := rootLogLevel
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)

	logOpts := logging.Options{Level: logLevel, File: logFile}
	if fileCfg.Log.MaxSizeMB != nil {
		logOpts.MaxSizeMB = *fileCfg.Log.MaxSizeMB
	}
	log, err := logging.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	st, err := store.Open(dataDir, log)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	keep := defaultKeepSnapshots
	applyIntConfig(cmd, "", &keep, fileCfg.Data.KeepSnapshots)
	archive, err := store.OpenArchive(config.DefaultArchivePath(dataDir))
	if err != nil {
		// Snapshots are optional; the JSON collections keep working without them.
		log.Warn("failed to open snapshot archive", zap.Error(err))
		archive = nil
	}

	return &env{
		cfg:     fileCfg,
		log:     log,
		dataDir: dataDir,
		store:   st,
		archive: archive,
		tracker: app.NewTracker(st, archive, app.Options{KeepSnapshots: keep}, log),
	}, nil
}

func (e *env) Close() {
	if e.archive != nil {
		if err := e.archive.Close(); err != nil {
			logErrf("failed to close snapshot archive: %v\n", err)
		}
	}
	// Best-effort flush; syncing stderr fails on some terminals.
	_ = e.log.Sync()
}

func (e *env) authManager() (*auth.Manager, error) {
	opts := auth.Options{}
	if v := e.cfg.Auth.MaxAttempts; v != nil {
		opts.MaxAttempts = *v
	}
	if v := e.cfg.Auth.LockMinutes; v != nil {
		opts.LockDuration = time.Duration(*v) * time.Minute
	}
	if v := e.cfg.Auth.TokenHours; v != nil {
		opts.TokenTTL = time.Duration(*v) * time.Hour
	}
	return auth.NewManager(e.store, config.DefaultSecretKeyPath(e.dataDir), opts, e.log)
}

// applyStringConfig copies a config value unless the named flag was set.
// An empty name means the value has no flag.
func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if name != "" && cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if name != "" && cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}
