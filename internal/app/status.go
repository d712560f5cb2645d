package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aurkonsult/internal/aur"
	"github.com/blackwell-systems/aurkonsult/internal/output"
	"github.com/blackwell-systems/aurkonsult/internal/watcher"
)

var (
	statusHistory int

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show catalog, fetch and check status",
		Long: `Display the state of the local catalog and the last results.

Shows:
  • Catalog file, size and age
  • The "new since" threshold recorded by the last sync
  • Recent fetch attempts and their outcome
  • The last saved check run
  • Watch daemon status and PID`,
		Example: `  # Check status
  aurkonsult status

  # Show the last 20 fetches
  aurkonsult status --history 20`,
		RunE: runStatus,
	}
)

func init() {
	statusCmd.Flags().IntVar(&statusHistory, "history", 5, "number of fetch attempts to show")
}

func runStatus(cmd *cobra.Command, args []string) error {
	target, err := cfg.Target()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Println("Catalog")
	if info, err := os.Stat(target.DataFile); err == nil {
		fmt.Printf("  File:        %s\n", target.DataFile)
		fmt.Printf("  Size:        %s\n", output.FormatSize(info.Size()))
		fmt.Printf("  Written:     %s\n", output.FormatRelativeTime(info.ModTime()))
	} else {
		fmt.Printf("  File:        %s (not downloaded)\n", target.DataFile)
	}
	fmt.Printf("  Source:      %s\n", target.URL)

	state, err := aur.LoadSyncState(target.DataFile, target.MetaFile)
	if err != nil {
		return err
	}
	if state.Known {
		fmt.Printf("  New since:   %s (%s)\n", state.Since().Local().Format("2006-01-02 15:04"), output.FormatRelativeTime(state.Since()))
	} else {
		fmt.Printf("  New since:   unknown (no %s)\n", target.MetaFile)
	}

	last, err := st.LastSuccessfulFetch()
	if err != nil {
		return err
	}
	if last != nil {
		fmt.Printf("  Last synced: %s\n", output.FormatRelativeTime(last.FinishedAt))
	} else {
		fmt.Println("  Last synced: never")
	}

	if statusHistory > 0 {
		history, err := st.FetchHistory(statusHistory)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println("Recent fetches")
		fmt.Print(output.RenderFetchTable(history))
	}

	fmt.Println()
	fmt.Println("Installed")
	scanned, err := st.InventoryScannedAt()
	if err != nil {
		return err
	}
	inventory, err := st.ListInventory()
	if err != nil {
		return err
	}
	fmt.Printf("  Foreign:     %d packages (scanned %s)\n", len(inventory), output.FormatRelativeTime(scanned))

	run, err := st.LatestCheckRun()
	if err != nil {
		return err
	}
	if run != nil {
		fmt.Printf("  Last check:  %s\n", output.FormatRelativeTime(run.CreatedAt))
		fmt.Printf("               %s\n", output.RenderCheckSummary(run))
	} else {
		fmt.Println("  Last check:  never (run 'aurkonsult check')")
	}

	fmt.Println()
	fmt.Println("Watch daemon")
	pidFile, err := getDefaultPIDFile()
	if err != nil {
		return fmt.Errorf("failed to get PID file path: %w", err)
	}
	running, err := watcher.IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}
	if running {
		fmt.Printf("  Running (PID %d)\n", readPIDFile(pidFile))
	} else {
		fmt.Println("  Not running")
	}

	return nil
}

// readPIDFile returns the PID stored in path, or 0.
func readPIDFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return pid
}

// catalogAge returns how long ago the catalog file was written, and false
// when it does not exist.
func catalogAge(path string, now time.Time) (time.Duration, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, false
	}
	return now.Sub(info.ModTime()), true
}
