package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/studytrack/internal/app"
	"github.com/verte-zerg/studytrack/internal/notify"
	"github.com/verte-zerg/studytrack/internal/stats"
)

const replanInterval = 24 * time.Hour

var (
	remindTo       string
	remindDryRun   bool
	remindInterval time.Duration
)

func newRemindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Run the reminder scheduler until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runRemindCmd,
	}
	cmd.Flags().StringVar(&remindTo, "to", "", "recipient address (default: notify.email from config)")
	cmd.Flags().BoolVar(&remindDryRun, "dry-run", false, "print notifications instead of sending mail")
	cmd.Flags().DurationVar(&remindInterval, "interval", time.Minute, "how often due notifications are checked")
	return cmd
}

func runRemindCmd(cmd *cobra.Command, _ []string) error {
	env, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	cfg := env.cfg.Notify
	to := remindTo
	applyStringConfig(cmd, "to", &to, cfg.Email)
	if to == "" && !remindDryRun {
		return fmt.Errorf("no recipient: pass --to or set notify.email in the config")
	}

	sender, err := reminderSender(cmd, env)
	if err != nil {
		return err
	}
	opts := notify.Options{Interval: remindInterval}
	if cfg.IntervalSeconds != nil && !cmd.Flags().Changed("interval") {
		opts.Interval = time.Duration(*cfg.IntervalSeconds) * time.Second
	}
	if cfg.TimeoutSeconds != nil {
		opts.SendTimeout = time.Duration(*cfg.TimeoutSeconds) * time.Second
	}
	applyIntConfig(cmd, "", &opts.PerMinute, cfg.PerMinute)
	scheduler := notify.NewScheduler(sender, opts, env.log.Named("notify"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(ctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(replanInterval)
		defer ticker.Stop()
		for {
			if err := planReminders(ctx, scheduler, env.tracker.Load(), to, time.Now()); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})

	logErrln("Reminder scheduler running. Press Ctrl+C to stop.")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func reminderSender(cmd *cobra.Command, env *env) (notify.Sender, error) {
	if remindDryRun {
		out := cmd.OutOrStdout()
		return notify.LogSender(func(n notify.Notification) {
			if _, err := fmt.Fprintf(out, "[%s] to=%s %s\n%s\n\n", n.At.Format(time.RFC3339), n.To, n.Subject, n.Body); err != nil {
				env.log.Warn("failed to print notification", zap.Error(err))
			}
		}), nil
	}
	cfg := env.cfg.Notify
	smtpCfg := notify.SMTPConfig{}
	applyStringConfig(cmd, "", &smtpCfg.Server, cfg.SMTPServer)
	applyIntConfig(cmd, "", &smtpCfg.Port, cfg.SMTPPort)
	applyStringConfig(cmd, "", &smtpCfg.Username, cfg.SMTPUsername)
	applyStringConfig(cmd, "", &smtpCfg.Password, cfg.SMTPPassword)
	sender, err := notify.NewSMTPSender(smtpCfg)
	if err != nil {
		return nil, fmt.Errorf("%w (set notify.smtp-server in the config or use --dry-run)", err)
	}
	return sender, nil
}

// planReminders queues the notifications the settings ask for, relative to now.
func planReminders(ctx context.Context, s *notify.Scheduler, state app.State, to string, now time.Time) error {
	prefs := state.Settings.Notifications
	if !prefs.Enabled {
		return nil
	}
	var planned []notify.Notification
	if prefs.DailyReminder {
		n, err := notify.DailyReminder(to, prefs.ReminderTime, now)
		if err != nil {
			return err
		}
		planned = append(planned, n)
	}
	week := stats.Weekly(state.Entries, now)
	if prefs.WeeklySummary {
		planned = append(planned, notify.WeeklySummary(to, week, now))
	}
	goals := state.Settings.StudyGoals
	if n, ok := notify.GoalReminder(to, "weekly hours", week.Hours, goals.WeeklyHours, now); ok {
		planned = append(planned, n)
	}
	if n, ok := notify.GoalReminder(to, "weekly questions", float64(week.Questions), float64(goals.WeeklyQuestions), now); ok {
		planned = append(planned, n)
	}
	planned = append(planned, notify.MotivationQuote(to, now))

	for _, n := range planned {
		// Replanning the same reminder for the same time replaces it.
		n.ID = n.Subject + "@" + n.At.Format(time.RFC3339)
		if _, err := s.Schedule(ctx, n); err != nil {
			return err
		}
	}
	return nil
}
