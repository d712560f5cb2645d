package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aurkonsult/internal/analyzer"
	"github.com/blackwell-systems/aurkonsult/internal/output"
)

var (
	listSearch string
	listDesc   bool
	listDeps   string
	listSort   string
	listAsc    bool
	listLimit  int

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Search and sort the AUR catalog",
		Long: `List catalog packages, optionally filtered and sorted.

Filters combine: a package is shown only when it matches the text search and
the dependency query. Text patterns shorter than three characters are ignored.

The dependency query is a space separated list of names. A bare name or a
"+name" keeps packages depending on it; "-name" drops packages depending on
it. Version constraints in the catalog ("glibc>=2.38") are ignored when
matching. Dependencies are only present in the extended catalog (--ext).

Installed packages are marked "*", packages flagged out of date "!".`,
		Example: `  # Most recently modified packages
  aurkonsult list

  # Search names only
  aurkonsult list --search firefox

  # Search names and descriptions, most voted first
  aurkonsult list --search "pdf viewer" --desc --sort votes

  # GTK packages without Qt
  aurkonsult --ext list --deps "+gtk3 -qt5-base -qt6-base"`,
		RunE: runList,
	}
)

func init() {
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "text to search for (at least 3 characters)")
	listCmd.Flags().BoolVar(&listDesc, "desc", false, "search descriptions as well as names")
	listCmd.Flags().StringVar(&listDeps, "deps", "", `dependency query, e.g. "+gtk3 -qt5-base"`)
	listCmd.Flags().StringVar(&listSort, "sort", string(analyzer.DefaultSort), "sort key")
	listCmd.Flags().BoolVar(&listAsc, "asc", false, "sort ascending")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 50, "show at most N packages (0 for all)")
}

func runList(cmd *cobra.Command, args []string) error {
	key, err := analyzer.ParseSortKey(listSort)
	if err != nil {
		return err
	}

	st, engine, _, err := prepare(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer st.Close()

	scope := analyzer.ScopeName
	if listDesc {
		scope = analyzer.ScopeNameDescription
	}
	if listSearch != "" {
		engine.FilterByText(listSearch, scope)
	}
	if listDeps != "" {
		q := analyzer.ParseDependencyQuery(listDeps)
		engine.FilterByDependencies(q.Wants, q.Excludes)
	}
	engine.SortBy(key, listAsc)

	view := engine.Current()
	fmt.Print(output.RenderPackageTable(limitView(view, listLimit)))
	if listLimit > 0 && len(view) > listLimit {
		fmt.Printf("\n%d of %d packages shown (use --limit 0 for all)\n", listLimit, len(view))
	} else {
		fmt.Printf("\n%d packages\n", len(view))
	}
	return nil
}
