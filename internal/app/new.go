package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aurkonsult/internal/analyzer"
	"github.com/blackwell-systems/aurkonsult/internal/aur"
	"github.com/blackwell-systems/aurkonsult/internal/output"
)

var (
	newSync  bool
	newSince time.Duration
	newLimit int

	newCmd = &cobra.Command{
		Use:   "new",
		Short: "Show packages submitted since the previous sync",
		Long: `List packages first submitted after the previous catalog download.

The threshold is the catalog time recorded by the last successful sync. It is
read before --sync fetches a new catalog, so "aurkonsult new --sync" shows
exactly what the fresh catalog added. Without any recorded sync, packages from
the last new_window_hours (default 48) are shown.`,
		Example: `  # What appeared since the last sync
  aurkonsult new

  # Sync first, then show what the sync brought in
  aurkonsult new --sync

  # Everything submitted in the last week
  aurkonsult new --since 168h`,
		RunE: runNew,
	}
)

func init() {
	newCmd.Flags().BoolVar(&newSync, "sync", false, "sync the catalog after reading the threshold")
	newCmd.Flags().DurationVar(&newSince, "since", 0, "ignore the recorded sync time and use this window instead")
	newCmd.Flags().IntVarP(&newLimit, "limit", "n", 0, "show at most N packages (0 for all)")
}

func runNew(cmd *cobra.Command, args []string) error {
	target, err := cfg.Target()
	if err != nil {
		return err
	}

	// The threshold must be read before any sync rewrites the sidecar.
	state, err := aur.LoadSyncState(target.DataFile, target.MetaFile)
	if err != nil {
		return err
	}
	since := newThreshold(state, newSince, cfg.NewWindow(), time.Now())

	if newSync {
		st, err := openStore()
		if err != nil {
			return err
		}
		res, err := syncCatalog(cmd.Context(), st)
		st.Close()
		if err != nil {
			return err
		}
		if res.Err != nil {
			fmt.Println("⚠ Sync failed, using the previous catalog:", res.Err)
		}
	}

	st, engine, _, err := prepare(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer st.Close()

	engine.FilterNewSince(since.Unix())
	engine.SortBy(analyzer.SortSubmitted, false)

	view := engine.Current()
	fmt.Printf("Packages submitted since %s (%s)\n\n",
		since.Local().Format("2006-01-02 15:04"), output.FormatRelativeTime(since))
	fmt.Print(output.RenderPackageTable(limitView(view, newLimit)))
	fmt.Printf("\n%d new packages\n", len(view))
	return nil
}

// newThreshold picks the "new since" time: an explicit window wins, then
// the recorded sync time, then the default window.
func newThreshold(state aur.SyncState, override, window time.Duration, now time.Time) time.Time {
	switch {
	case override > 0:
		return now.Add(-override)
	case state.Known:
		return state.Since()
	default:
		return now.Add(-window)
	}
}
