// Package output provides terminal output utilities for aurkonsult.
//
// This package includes:
//   - Table rendering for catalog listings, check results and fetch history
//   - Detail views for a single package, its comments and its git history
//   - A spinner and a byte-counting download progress bar
//
// Colors are only emitted when stdout is a terminal and NO_COLOR is unset.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"

	"github.com/blackwell-systems/aurkonsult/internal/aur"
	"github.com/blackwell-systems/aurkonsult/internal/store"
)

// ANSI color codes for state display
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderPackageTable renders catalog records in the order given.
// Installed packages are marked with "*", flagged ones with "!".
func RenderPackageTable(packages []*aur.Package) string {
	if len(packages) == 0 {
		return "No packages found.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-2s %-32s %-22s %6s %6s %-16s %s\n",
		"", "Package", "Version", "Votes", "Pop", "Maintainer", "Modified"))
	sb.WriteString(strings.Repeat("─", 100))
	sb.WriteString("\n")

	for _, pkg := range packages {
		maintainer := pkg.Maintainer
		if maintainer == "" {
			maintainer = "(orphan)"
		}
		sb.WriteString(fmt.Sprintf("%-2s %-32s %-22s %6d %6.2f %-16s %s\n",
			markers(pkg),
			truncate(pkg.Name, 32),
			truncate(pkg.Version, 22),
			pkg.NumVotes,
			pkg.Popularity,
			truncate(maintainer, 16),
			formatUnix(pkg.LastModified)))
	}

	return sb.String()
}

func markers(pkg *aur.Package) string {
	var m string
	if pkg.Installed() {
		m += "*"
	}
	if pkg.Flagged() {
		m += colorize(colorRed, "!")
	}
	return m
}

// RenderCheckTable renders a reconciled view: one row per installed
// foreign package with its local and remote versions and state.
func RenderCheckTable(packages []*aur.Package) string {
	if len(packages) == 0 {
		return "No foreign packages installed.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-32s %-22s %-22s %s\n",
		"Package", "Installed", "AUR", "State"))
	sb.WriteString(strings.Repeat("─", 92))
	sb.WriteString("\n")

	for _, pkg := range packages {
		remote := pkg.Version
		if remote == "" {
			remote = "—"
		}
		state := pkg.State().String()
		if pkg.Flagged() {
			state += " (flagged " + formatUnix(pkg.OutOfDate) + ")"
		}
		sb.WriteString(fmt.Sprintf("%-32s %-22s %-22s %s\n",
			truncate(pkg.Name, 32),
			truncate(pkg.LocalVersion, 22),
			truncate(remote, 22),
			colorize(stateColor(pkg.State()), state)))
	}

	return sb.String()
}

// stateColor returns the ANSI color code for a reconciliation state.
func stateColor(s aur.State) string {
	switch s {
	case aur.StateSynced:
		return colorGreen
	case aur.StateRemoteAhead:
		return colorYellow
	case aur.StateOrphan:
		return colorRed
	default:
		return colorGray
	}
}

// RenderCheckSummary renders the one-line breakdown of a check run.
// Format: "12 foreign · 9 synced · 2 outdated · 1 orphan"
func RenderCheckSummary(run *store.CheckRun) string {
	parts := []string{
		fmt.Sprintf("%d foreign", run.Total),
		colorize(colorGreen, fmt.Sprintf("%d synced", run.Synced)),
		colorize(colorYellow, fmt.Sprintf("%d outdated", run.RemoteAhead)),
	}
	if run.LocalAhead > 0 {
		parts = append(parts, colorize(colorGray, fmt.Sprintf("%d ahead of AUR", run.LocalAhead)))
	}
	parts = append(parts, colorize(colorRed, pluralize(run.Orphans, "orphan", "orphans")))
	return strings.Join(parts, " · ")
}

// RenderPackageDetail renders every populated field of a record.
func RenderPackageDetail(pkg *aur.Package, baseURL string) string {
	var sb strings.Builder

	row := func(label, value string) {
		if value != "" {
			sb.WriteString(fmt.Sprintf("%-16s %s\n", label+":", value))
		}
	}
	list := func(label string, values []string) {
		if len(values) > 0 {
			row(label, strings.Join(values, "  "))
		}
	}

	row("Name", pkg.Name)
	row("Version", pkg.Version)
	if pkg.Installed() {
		row("Installed", fmt.Sprintf("%s (%s)", pkg.LocalVersion, colorize(stateColor(pkg.State()), pkg.State().String())))
	}
	row("Description", pkg.Description)
	row("Upstream URL", pkg.URL)
	if host := pkg.Hostname(); host != "" {
		row("Upstream host", host)
	}
	if pkg.Version != "" {
		row("AUR page", pkg.AURURL(baseURL))
		row("PKGBUILD", pkg.PKGBUILDURL(baseURL))
	}
	row("Package base", pkg.Base())
	list("Licenses", pkg.License)
	list("Groups", pkg.Groups)
	list("Provides", pkg.Provides)
	list("Depends on", pkg.Depends)
	list("Make deps", pkg.MakeDepends)
	list("Check deps", pkg.CheckDepends)
	list("Optional deps", pkg.OptDepends)
	list("Conflicts with", pkg.Conflicts)
	list("Replaces", pkg.Replaces)
	list("Keywords", pkg.Keywords)
	row("Maintainer", pkg.Maintainer)
	list("Co-maintainers", pkg.CoMaintainers)
	row("Submitter", pkg.Submitter)
	if pkg.NumVotes > 0 || pkg.Popularity > 0 {
		row("Votes", fmt.Sprintf("%s (popularity %.2f)", humanize.Comma(pkg.NumVotes), pkg.Popularity))
	}
	if pkg.FirstSubmitted > 0 {
		row("First submitted", formatDate(pkg.FirstSubmitted))
	}
	if pkg.LastModified > 0 {
		row("Last modified", formatDate(pkg.LastModified))
	}
	if pkg.Flagged() {
		row("Out of date", colorize(colorRed, formatDate(pkg.OutOfDate)))
	}

	return sb.String()
}

// RenderComments renders comment dates newest first, as the AUR page lists
// them.
func RenderComments(comments []aur.Comment) string {
	if len(comments) == 0 {
		return "No comments.\n"
	}
	var sb strings.Builder
	for _, c := range comments {
		sb.WriteString(fmt.Sprintf("  %s  #comment-%s\n", c.Date, c.ID))
	}
	return sb.String()
}

// RenderHistory renders git log entries.
func RenderHistory(entries []aur.HistoryEntry) string {
	if len(entries) == 0 {
		return "No history.\n"
	}
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("  %s  %s\n", e.Date, e.Subject))
	}
	return sb.String()
}

// RenderFetchTable renders the fetch log.
func RenderFetchTable(records []store.FetchRecord) string {
	if len(records) == 0 {
		return "No fetches recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-16s %-13s %6s %10s %s\n",
		"When", "Outcome", "Status", "Size", "Error"))
	sb.WriteString(strings.Repeat("─", 70))
	sb.WriteString("\n")

	for _, rec := range records {
		size := "—"
		if rec.Bytes > 0 {
			size = formatSize(rec.Bytes)
		}
		status := "—"
		if rec.Status > 0 {
			status = fmt.Sprintf("%d", rec.Status)
		}
		sb.WriteString(fmt.Sprintf("%-16s %-13s %6s %10s %s\n",
			formatRelativeTime(rec.StartedAt),
			rec.Outcome,
			status,
			size,
			truncate(rec.Error, 40)))
	}

	return sb.String()
}

// FormatRelativeTime is the exported form of formatRelativeTime.
func FormatRelativeTime(t time.Time) string {
	return formatRelativeTime(t)
}

// FormatSize is the exported form of formatSize.
func FormatSize(bytes int64) string {
	return formatSize(bytes)
}

// formatSize converts bytes to human-readable size.
func formatSize(bytes int64) string {
	if bytes < 0 {
		return "?"
	}
	return humanize.Bytes(uint64(bytes))
}

// formatRelativeTime returns "3 days ago" style text, or "never" for the
// zero time.
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func formatUnix(ts int64) string {
	if ts <= 0 {
		return "—"
	}
	return formatRelativeTime(time.Unix(ts, 0))
}

func formatDate(ts int64) string {
	return time.Unix(ts, 0).Local().Format("2006-01-02 15:04")
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// truncate shortens s to maxLen display cells, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if runewidth.StringWidth(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return runewidth.Truncate(s, maxLen, "")
	}
	return runewidth.Truncate(s, maxLen, "...")
}
