package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/aurkonsult/internal/aur"
	"github.com/blackwell-systems/aurkonsult/internal/logger"
	"github.com/blackwell-systems/aurkonsult/internal/output"
)

var (
	infoPKGBUILD bool
	infoComments bool
	infoHistory  bool

	infoCmd = &cobra.Command{
		Use:   "info <package>",
		Short: "Show everything known about one package",
		Long: `Display the catalog record of a package, its installed version if any,
and the other packages of its maintainer.

Optionally fetch live data from the AUR: the PKGBUILD, the comment dates
and the git history of the package base. These lookups use lookup_timeout
and are skipped with a warning when the AUR cannot be reached. The history
needs git on PATH.`,
		Example: `  # Catalog record
  aurkonsult info yay

  # Include the PKGBUILD and comments
  aurkonsult info yay --pkgbuild --comments

  # Git log of the package base
  aurkonsult info yay --history`,
		Args: cobra.ExactArgs(1),
		RunE: runInfo,
	}
)

func init() {
	infoCmd.Flags().BoolVar(&infoPKGBUILD, "pkgbuild", false, "fetch and print the PKGBUILD")
	infoCmd.Flags().BoolVar(&infoComments, "comments", false, "fetch comment dates (default from config)")
	infoCmd.Flags().BoolVar(&infoHistory, "history", false, "fetch the git history (default from config)")
}

func runInfo(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])

	st, engine, installed, err := prepare(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer st.Close()

	pkg, ok := engine.Find(name)
	if !ok {
		if local, isLocal := installed[name]; isLocal {
			fmt.Printf("%s %s is installed but no longer in the AUR.\n", local.Name, local.Version)
			if local.URL != "" {
				fmt.Printf("Upstream: %s\n", local.URL)
			}
			return nil
		}
		return fmt.Errorf("package %q not found in the catalog", name)
	}

	fmt.Print(output.RenderPackageDetail(pkg, cfg.AURURL))

	if others := otherPackages(engine.ByMaintainer(pkg.Maintainer), pkg.Name); len(others) > 0 {
		fmt.Printf("%-16s %s\n", "Also maintains:", strings.Join(others, "  "))
	}

	flags := cmd.Flags()
	wantComments := cfg.Comments
	if flags.Changed("comments") {
		wantComments = infoComments
	}
	wantHistory := cfg.History
	if flags.Changed("history") {
		wantHistory = infoHistory
	}

	if infoPKGBUILD || wantComments || wantHistory {
		upstream, err := newUpstream()
		if err != nil {
			return err
		}
		printUpstream(cmd.Context(), upstream, pkg, infoPKGBUILD, wantComments, wantHistory)
	}

	fmt.Println()
	fmt.Println("Build:", buildSuggestion(pkg, cfg.Pamac, cfg.AURURL))
	return nil
}

// printUpstream prints the requested live lookups. Failures are reported
// inline; the catalog record has already been printed.
func printUpstream(ctx context.Context, upstream *aur.Upstream, pkg *aur.Package, pkgbuild, comments, history bool) {
	log := logger.Logger()

	if pkgbuild {
		fmt.Println()
		fmt.Println("PKGBUILD:")
		text, err := upstream.FetchPKGBUILD(ctx, pkg.Base())
		if err != nil {
			log.Debugw("pkgbuild lookup failed", "package", pkg.Name, "error", err)
			fmt.Println("  ⚠ unavailable:", err)
		} else {
			fmt.Println(text)
		}
	}

	if comments {
		fmt.Println()
		fmt.Println("Comments:")
		list, err := upstream.FetchComments(ctx, pkg.Name)
		if err != nil {
			log.Debugw("comment lookup failed", "package", pkg.Name, "error", err)
			fmt.Println("  ⚠ unavailable:", err)
		} else {
			fmt.Print(output.RenderComments(list))
		}
	}

	if history {
		fmt.Println()
		fmt.Println("History:")
		entries, err := upstream.History(ctx, pkg.Base())
		if err != nil {
			log.Debugw("history lookup failed", "package", pkg.Name, "error", err)
			fmt.Println("  ⚠ unavailable:", err)
		} else {
			fmt.Print(output.RenderHistory(entries))
		}
	}
}

func otherPackages(names []string, self string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != self {
			out = append(out, n)
		}
	}
	return out
}

// buildSuggestion returns the command that builds pkg from the AUR.
func buildSuggestion(pkg *aur.Package, pamac bool, baseURL string) string {
	if pamac {
		return "pamac build " + pkg.Name
	}
	base := pkg.Base()
	return fmt.Sprintf("git clone %s/%s.git && cd %s && makepkg -si", strings.TrimRight(baseURL, "/"), base, base)
}
