package output

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/aurkonsult/internal/aur"
	"github.com/blackwell-systems/aurkonsult/internal/store"
)

func installed(pkg *aur.Package, local string) *aur.Package {
	pkg.SetLocalVersion(local)
	return pkg
}

func TestRenderPackageTable(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		packages []*aur.Package
		contains []string
		excludes []string
	}{
		{
			name:     "empty packages",
			packages: []*aur.Package{},
			contains: []string{"No packages found"},
		},
		{
			name: "single package",
			packages: []*aur.Package{
				{Name: "yay-bin", Version: "12.3.5-1", NumVotes: 1234, Popularity: 12.5, Maintainer: "jguer", LastModified: now.Add(-48 * time.Hour).Unix()},
			},
			contains: []string{"yay-bin", "12.3.5-1", "1234", "12.50", "jguer", "2 days ago"},
		},
		{
			name: "orphan and markers",
			packages: []*aur.Package{
				installed(&aur.Package{Name: "foo", Version: "1.0-1", OutOfDate: now.Unix()}, "1.0-1"),
			},
			contains: []string{"*!", "(orphan)"},
		},
		{
			name: "keeps caller order",
			packages: []*aur.Package{
				{Name: "zsh-theme", Version: "1"},
				{Name: "alpha", Version: "1"},
			},
			contains: []string{"zsh-theme"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RenderPackageTable(tt.packages)
			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("RenderPackageTable() missing %q in:\n%s", want, result)
				}
			}
		})
	}

	result := RenderPackageTable([]*aur.Package{{Name: "zsh-theme"}, {Name: "alpha"}})
	if strings.Index(result, "zsh-theme") > strings.Index(result, "alpha") {
		t.Error("RenderPackageTable() should not reorder packages")
	}
}

func TestRenderCheckTable(t *testing.T) {
	outdated := installed(&aur.Package{Name: "paru", Version: "2.0.4-1"}, "2.0.3-1")
	synced := installed(&aur.Package{Name: "yay", Version: "12.0-1"}, "12.0-1")
	orphan := installed(&aur.Package{Name: "gone"}, "0.1-1")

	result := RenderCheckTable([]*aur.Package{outdated, synced, orphan})

	for _, want := range []string{"paru", "2.0.3-1", "2.0.4-1", "remote-ahead", "synced", "orphan", "—"} {
		if !strings.Contains(result, want) {
			t.Errorf("RenderCheckTable() missing %q in:\n%s", want, result)
		}
	}

	if got := RenderCheckTable(nil); !strings.Contains(got, "No foreign packages") {
		t.Errorf("RenderCheckTable(nil) = %q", got)
	}
}

func TestRenderCheckSummary(t *testing.T) {
	run := &store.CheckRun{Total: 12, Synced: 9, RemoteAhead: 2, Orphans: 1}
	got := RenderCheckSummary(run)
	want := "12 foreign · 9 synced · 2 outdated · 1 orphan"
	if got != want {
		t.Errorf("RenderCheckSummary() = %q, want %q", got, want)
	}

	run.LocalAhead = 3
	run.Orphans = 0
	got = RenderCheckSummary(run)
	if !strings.Contains(got, "3 ahead of AUR") || !strings.Contains(got, "0 orphans") {
		t.Errorf("RenderCheckSummary() = %q", got)
	}
}

func TestRenderPackageDetail(t *testing.T) {
	pkg := installed(&aur.Package{
		Name:           "python-foo",
		Version:        "1.2-1",
		PackageBase:    "foo",
		Description:    "Foo bindings",
		URL:            "https://www.github.com/foo/foo",
		License:        []string{"MIT"},
		Depends:        []string{"python", "glibc"},
		Maintainer:     "someone",
		NumVotes:       1500,
		Popularity:     3.25,
		FirstSubmitted: 1600000000,
		LastModified:   1700000000,
	}, "1.1-1")

	result := RenderPackageDetail(pkg, aur.DefaultBaseURL)

	for _, want := range []string{
		"python-foo",
		"1.1-1 (remote-ahead)",
		"github.com",
		"https://aur.archlinux.org/packages/python-foo",
		"PKGBUILD",
		"Package base:",
		"python  glibc",
		"1,500",
		"3.25",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("RenderPackageDetail() missing %q in:\n%s", want, result)
		}
	}
	if strings.Contains(result, "Out of date") {
		t.Error("unflagged package should not show an out-of-date row")
	}
}

func TestRenderCommentsAndHistory(t *testing.T) {
	comments := RenderComments([]aur.Comment{{ID: "42", Date: "2024-01-02 10:00 (UTC)"}})
	if !strings.Contains(comments, "#comment-42") || !strings.Contains(comments, "2024-01-02") {
		t.Errorf("RenderComments() = %q", comments)
	}
	if !strings.Contains(RenderComments(nil), "No comments") {
		t.Error("RenderComments(nil) should say there are no comments")
	}

	history := RenderHistory([]aur.HistoryEntry{{Date: "2024-01-02", Subject: "upgpkg: 1.2-1"}})
	if !strings.Contains(history, "2024-01-02  upgpkg: 1.2-1") {
		t.Errorf("RenderHistory() = %q", history)
	}
}

func TestRenderFetchTable(t *testing.T) {
	records := []store.FetchRecord{
		{Outcome: "updated", Status: 200, Bytes: 12_000_000, StartedAt: time.Now().Add(-time.Hour)},
		{Outcome: "server-error", Error: "network error: dial tcp: refused", StartedAt: time.Now()},
	}
	result := RenderFetchTable(records)
	for _, want := range []string{"updated", "200", "12 MB", "server-error", "dial tcp", "1 hour ago"} {
		if !strings.Contains(result, want) {
			t.Errorf("RenderFetchTable() missing %q in:\n%s", want, result)
		}
	}
}

func TestFormatRelativeTime(t *testing.T) {
	if got := formatRelativeTime(time.Time{}); got != "never" {
		t.Errorf("formatRelativeTime(zero) = %q, want never", got)
	}
	if got := formatUnix(0); got != "—" {
		t.Errorf("formatUnix(0) = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a-very-long-package-name", 10, "a-very-..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}
