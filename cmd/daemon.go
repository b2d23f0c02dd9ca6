package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/proctrack/cli"
	"github.com/grovetools/proctrack/internal/daemon/collector"
	"github.com/grovetools/proctrack/internal/daemon/engine"
	"github.com/grovetools/proctrack/internal/daemon/pidfile"
	"github.com/grovetools/proctrack/internal/daemon/server"
	"github.com/grovetools/proctrack/internal/daemon/store"
	"github.com/grovetools/proctrack/internal/db"
	"github.com/grovetools/proctrack/internal/recorder"
	"github.com/grovetools/proctrack/internal/stats"
	"github.com/grovetools/proctrack/internal/watcher"
	"github.com/grovetools/proctrack/logging"
	"github.com/grovetools/proctrack/pkg/daemon"
	"github.com/grovetools/proctrack/pkg/paths"
	"github.com/grovetools/proctrack/pkg/process"
	"github.com/grovetools/proctrack/settings"
	"github.com/grovetools/proctrack/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run and control the tracking daemon",
		Long:  "The daemon polls running processes, records tracking sessions and serves the local API.",
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())

	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE:  runDaemonStart,
	}
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return err
	}
	logging.Configure(cfg, true)
	logger := logging.NewLogger("proctrackd")
	if cli.GetOptions(cmd).Verbose {
		logger.Logger.SetLevel(logrus.DebugLevel)
	}

	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to create proctrack directories: %w", err)
	}

	// 1. Acquire lock
	pidPath := paths.PidFilePath()
	if err := pidfile.Acquire(pidPath); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := pidfile.Release(pidPath); err != nil {
			logger.Errorf("Failed to release pidfile: %v", err)
		}
	}()

	// 2. Database, closing sessions left open by a crash
	database, err := db.Open(cfg.Database.Path, cfg.BusyTimeout())
	if err != nil {
		return err
	}
	defer database.Close()
	if n, err := database.CloseStale(context.Background()); err != nil {
		logger.WithError(err).Warn("Failed to close stale sessions")
	} else if n > 0 {
		logger.WithField("sessions", n).Info("Closed sessions left open by a previous run")
	}

	// 3. Settings
	settingsStore := settings.Open("")
	current, err := settingsStore.Load()
	if err != nil {
		return err
	}

	// 4. Provider and watcher
	provider, err := process.New(process.Options{
		Exclude:     cfg.Tracker.Exclude,
		IncludeSelf: cfg.Tracker.IncludeSelf,
		Logger:      logging.NewLogger("provider"),
	})
	if err != nil {
		return err
	}
	w, err := watcher.New(provider,
		watcher.WithInitialDelay(current.Seconds(settings.KeyInitialDelay, cfg.InitialDelay())),
		watcher.WithRecurringDelay(current.Seconds(settings.KeyRecurringDelay, cfg.RecurringDelay())),
		watcher.WithLogger(logging.NewLogger("watcher")),
	)
	if err != nil {
		return err
	}

	rec := recorder.New(database,
		recorder.WithLogger(logging.NewLogger("recorder")),
		recorder.WithEnabled(current.Bool(settings.KeyRecording, false)),
	)
	agg := stats.New(database,
		stats.WithLatestTitleCount(current.Int(settings.KeyLatestTitleCount, cfg.LatestTitleCount())),
	)
	service := daemon.NewStatisticsService(database, agg, settingsStore)

	// 5. Store, engine and collectors
	st := store.New()
	eng := engine.New(st, logger)
	eng.Register(collector.NewTrackerCollector(w, rec, logging.NewLogger("tracker")))
	eng.Register(collector.NewStatisticsCollector(agg, service.StoredFilters, cfg.StatisticsInterval(), logging.NewLogger("statistics")))
	eng.Register(collector.NewSettingsCollector(settingsStore, w, rec, cfg.RecurringDelay(), logging.NewLogger("settings")))

	// 6. Server
	srv := server.New(logger)
	srv.SetEngine(eng)
	srv.SetStatistics(service)
	srv.SetRunningConfig(&server.RunningConfig{
		PID:                os.Getpid(),
		Version:            version.Version,
		InitialDelay:       cfg.InitialDelay(),
		RecurringDelay:     cfg.RecurringDelay(),
		StatisticsInterval: cfg.StatisticsInterval(),
		Exclude:            cfg.Tracker.Exclude,
		DatabasePath:       cfg.Database.Path,
		SettingsPath:       settingsStore.Path(),
		StartedAt:          time.Now(),
	})

	// 7. Settings hot reload
	sw, err := daemon.NewSettingsWatcher(settingsStore, cfg.SettingsDebounce(), logger, st.BroadcastSettingsReload)
	if err != nil {
		return err
	}
	defer sw.Close()

	// 8. Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	engineCtx, cancelEngine := context.WithCancel(ctx)
	defer cancelEngine()

	engineDone := make(chan struct{})
	go func() {
		eng.Start(engineCtx)
		close(engineDone)
	}()
	go sw.Start(engineCtx)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe(paths.SocketPath())
	}()

	logger.WithFields(logrus.Fields{
		"pid":    os.Getpid(),
		"socket": paths.SocketPath(),
	}).Info("Starting daemon")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Received stop signal")
	case runErr = <-serveErr:
		if runErr != nil {
			runErr = fmt.Errorf("server error: %w", runErr)
		}
	}

	// Collectors must be gone before open sessions are closed, or a late
	// snapshot could reopen them.
	cancelEngine()
	<-engineDone
	if _, err := rec.Shutdown(context.Background()); err != nil {
		logger.WithError(err).Error("Failed to stop recording")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown error: %v", err)
	}

	logger.Info("Daemon stopped")
	return runErr
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pidPath := paths.PidFilePath()
			running, _, err := pidfile.IsRunning(pidPath)
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}

			pid, err := pidfile.Terminate(pidPath)
			if err != nil {
				return fmt.Errorf("failed to send stop signal: %w", err)
			}
			pretty(cmd).Success(fmt.Sprintf("Sent stop signal to process %d", pid))
			return nil
		},
	}
}

// DaemonState is the JSON shape of 'daemon status'.
type DaemonState struct {
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
	Socket  string `json:"socket"`
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check whether the daemon is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			running, pid, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			state := DaemonState{Running: running, PID: pid, Socket: paths.SocketPath()}
			if !running {
				state.PID = 0
			}

			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				return printJSON(out, state)
			}
			if running {
				fmt.Fprintf(out, "Running (PID: %d)\nSocket: %s\n", pid, state.Socket)
			} else {
				fmt.Fprintln(out, "Stopped")
			}
			return nil
		},
	}
}
