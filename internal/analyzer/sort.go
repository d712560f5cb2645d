package analyzer

import (
	"sort"
	"strings"

	"github.com/blackwell-systems/aurkonsult/internal/aur"
	"github.com/blackwell-systems/aurkonsult/internal/pacman"
)

// compareFunc returns <0, 0 or >0 in ascending order.
type compareFunc func(a, b *aur.Package) int

func comparator(key SortKey) compareFunc {
	switch key {
	case SortName:
		return func(a, b *aur.Package) int { return strings.Compare(a.Name, b.Name) }
	case SortVersion:
		return func(a, b *aur.Package) int { return pacman.Vercmp(a.Version, b.Version) }
	case SortLocalVersion:
		return func(a, b *aur.Package) int { return pacman.Vercmp(a.LocalVersion, b.LocalVersion) }
	case SortMaintainer:
		return func(a, b *aur.Package) int { return strings.Compare(a.Maintainer, b.Maintainer) }
	case SortVotes:
		return func(a, b *aur.Package) int { return compareInt64(a.NumVotes, b.NumVotes) }
	case SortPopularity:
		return func(a, b *aur.Package) int { return compareFloat64(a.Popularity, b.Popularity) }
	case SortSubmitted:
		return func(a, b *aur.Package) int { return compareInt64(a.FirstSubmitted, b.FirstSubmitted) }
	case SortModified:
		return func(a, b *aur.Package) int { return compareInt64(a.LastModified, b.LastModified) }
	case SortOutOfDate:
		return func(a, b *aur.Package) int { return compareInt64(a.OutOfDate, b.OutOfDate) }
	case SortState:
		return func(a, b *aur.Package) int { return int(a.State()) - int(b.State()) }
	default:
		return nil
	}
}

func (e *Engine) applySort(view []*aur.Package) {
	SortPackages(view, e.sortKey, e.ascending)
}

// SortPackages stably orders packages by key. SortNone leaves them as is.
func SortPackages(packages []*aur.Package, key SortKey, ascending bool) {
	cmp := comparator(key)
	if cmp == nil {
		return
	}
	sort.SliceStable(packages, func(i, j int) bool {
		if ascending {
			return cmp(packages[i], packages[j]) < 0
		}
		return cmp(packages[i], packages[j]) > 0
	})
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
