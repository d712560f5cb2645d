package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aurkonsult/internal/aur"
	"github.com/blackwell-systems/aurkonsult/internal/logger"
	"github.com/blackwell-systems/aurkonsult/internal/output"
	"github.com/blackwell-systems/aurkonsult/internal/store"
	"github.com/blackwell-systems/aurkonsult/internal/watcher"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchDaemonLog   string
	watchStop        bool
	watchRefresh     time.Duration

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Re-check installed packages whenever pacman changes them",
		Long: `Watch the pacman local database and run a check after every install,
upgrade or removal.

Bursts of changes (a full system upgrade) are coalesced into one check. With
--refresh the catalog is also re-synced on that interval; the sync only
downloads when the AUR has published a newer catalog.

Watch modes:
  • Foreground (default): Run in current terminal with Ctrl+C to stop
  • Daemon: Run as background process
  • Stop: Stop a running daemon

Every check is saved and shows up in 'aurkonsult status'.`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  aurkonsult watch

  # Also refresh the catalog every 6 hours
  aurkonsult watch --refresh 6h

  # Run as background daemon
  aurkonsult watch --daemon --refresh 6h

  # Stop running daemon
  aurkonsult watch --stop`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.aurkonsult/watch.pid)")
	watchCmd.Flags().StringVar(&watchDaemonLog, "daemon-log", "", "daemon output file (default: ~/.aurkonsult/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")
	watchCmd.Flags().DurationVar(&watchRefresh, "refresh", 0, "re-sync the catalog on this interval (0 disables)")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchPIDFile == "" {
		defaultPID, err := getDefaultPIDFile()
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		watchPIDFile = defaultPID
	}

	if watchDaemonLog == "" {
		defaultLog, err := getDefaultLogFile()
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		watchDaemonLog = defaultLog
	}

	if watchStop {
		return stopWatchDaemon()
	}

	if watchDaemon {
		return startWatchDaemon()
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	w, err := newWatcher(st)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if watchDaemonChild {
		return watcher.RunDaemon(w, watchPIDFile)
	}
	return runWatchForeground(w)
}

// newWatcher builds a watcher whose change callback runs a saved check and
// whose refresh callback syncs the catalog.
func newWatcher(st *store.Store) (*watcher.Watcher, error) {
	var opts []watcher.Option
	if watchRefresh > 0 {
		syncer, download, err := newSyncer(st)
		if err != nil {
			return nil, err
		}
		target, err := cfg.Target()
		if err != nil {
			return nil, err
		}
		opts = append(opts, watcher.WithRefresh(watchRefresh, func(ctx context.Context) error {
			defer download.Finish()
			res, err := syncer.TrySync(ctx, target)
			if err != nil {
				return err
			}
			fmt.Printf("%s catalog %s\n", time.Now().Format(time.DateTime), res.Outcome)
			return res.Err
		}))
	}

	return watcher.New(cfg.PacmanDB, func(ctx context.Context) error {
		return watchCheck(ctx, st)
	}, opts...)
}

// watchCheck rescans, reconciles and saves one check run.
func watchCheck(ctx context.Context, st *store.Store) error {
	installed, changes, err := scanInstalled(st)
	if err != nil {
		return err
	}
	if err := ensureCatalog(ctx, st); err != nil {
		return err
	}
	packages, err := loadCatalog(installed, true)
	if err != nil {
		return err
	}
	engine, err := newEngine(packages)
	if err != nil {
		return err
	}

	target, err := cfg.Target()
	if err != nil {
		return err
	}
	view := engine.Reconcile(installed)
	run, err := st.SaveCheckRun(view, target.DataFile, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save check run: %w", err)
	}

	logger.Logger().Debugw("check finished", "run", run.ID, "added", len(changes.Added), "removed", len(changes.Removed), "changed", len(changes.Changed))
	fmt.Printf("%s %s\n", time.Now().Format(time.DateTime), output.RenderCheckSummary(run))
	for _, p := range view {
		if p.State() == aur.StateRemoteAhead {
			fmt.Printf("  %s %s -> %s\n", p.Name, p.LocalVersion, p.Version)
		}
	}
	return nil
}

func stopWatchDaemon() error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	spinner := output.NewSpinner("Stopping daemon")
	spinner.Start()
	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon stopped")

	return nil
}

func startWatchDaemon() error {
	spinner := output.NewSpinner("Starting daemon")
	spinner.Start()
	if err := watcher.StartDaemon(watchPIDFile, watchDaemonLog, daemonArgs(os.Args[1:])); err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	spinner.StopWithMessage("✓ Daemon started")

	fmt.Printf("\nWatching %s\n", cfg.PacmanDB)
	fmt.Printf("  PID file: %s\n", watchPIDFile)
	fmt.Printf("  Log file: %s\n", watchDaemonLog)
	fmt.Printf("\nTo stop: aurkonsult watch --stop\n")

	return nil
}

// daemonArgs returns the command line for the daemon child: the current
// arguments without --daemon.
func daemonArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--daemon" || a == "--daemon=true" {
			continue
		}
		out = append(out, a)
	}
	return out
}

func runWatchForeground(w *watcher.Watcher) error {
	fmt.Printf("Watching %s (press Ctrl+C to stop)...\n\n", w.Dir())

	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	fmt.Printf("\nReceived signal %v, shutting down...\n", sig)

	if err := w.Stop(); err != nil {
		return fmt.Errorf("failed to stop watcher: %w", err)
	}
	fmt.Println("✓ Watcher stopped")
	return nil
}
