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
	checkOutdated bool
	checkOrphans  bool
	checkSync     bool
	checkSort     string
	checkNoSave   bool

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Compare installed foreign packages with the AUR",
		Long: `Reconcile every foreign package installed through pacman with the catalog.

Each installed package gets one of these states:
  synced        installed version equals the AUR version
  remote-ahead  the AUR has a newer version
  local-ahead   the installed version is newer (VCS or locally bumped builds)
  orphan        the package is no longer in the AUR

Versions are compared with pacman's vercmp rules. Each run is saved so
'aurkonsult status' can show the last result.`,
		Example: `  # Full report
  aurkonsult check

  # Only packages with an update in the AUR
  aurkonsult check --outdated

  # Only packages that left the AUR
  aurkonsult check --orphans

  # Refresh the catalog first
  aurkonsult check --sync`,
		RunE: runCheck,
	}
)

func init() {
	checkCmd.Flags().BoolVar(&checkOutdated, "outdated", false, "show only packages with a newer AUR version")
	checkCmd.Flags().BoolVar(&checkOrphans, "orphans", false, "show only packages missing from the AUR")
	checkCmd.Flags().BoolVar(&checkSync, "sync", false, "sync the catalog before checking")
	checkCmd.Flags().StringVar(&checkSort, "sort", string(analyzer.SortState), "sort key")
	checkCmd.Flags().BoolVar(&checkNoSave, "no-save", false, "do not record this run")
}

func runCheck(cmd *cobra.Command, args []string) error {
	key, err := analyzer.ParseSortKey(checkSort)
	if err != nil {
		return err
	}

	if checkSync {
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

	st, engine, installed, err := prepare(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer st.Close()

	view := engine.Reconcile(installed)
	analyzer.SortPackages(view, key, true)

	if !checkNoSave {
		target, err := cfg.Target()
		if err != nil {
			return err
		}
		run, err := st.SaveCheckRun(view, target.DataFile, time.Now())
		if err != nil {
			return fmt.Errorf("failed to save check run: %w", err)
		}
		fmt.Println(output.RenderCheckSummary(run))
		fmt.Println()
	}

	fmt.Print(output.RenderCheckTable(filterStates(view, checkOutdated, checkOrphans)))
	return nil
}

// filterStates narrows a check view. With neither flag set the view is
// returned unchanged; with both, either state is kept.
func filterStates(view []*aur.Package, outdated, orphans bool) []*aur.Package {
	if !outdated && !orphans {
		return view
	}
	var out []*aur.Package
	for _, p := range view {
		switch p.State() {
		case aur.StateRemoteAhead:
			if outdated {
				out = append(out, p)
			}
		case aur.StateOrphan:
			if orphans {
				out = append(out, p)
			}
		}
	}
	return out
}
