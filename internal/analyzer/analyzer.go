// Package analyzer filters, sorts and reconciles a loaded AUR catalog
// against the locally installed foreign packages.
package analyzer

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/blackwell-systems/aurkonsult/internal/aur"
	"github.com/blackwell-systems/aurkonsult/internal/pacman"
)

// minPatternLength is the shortest text pattern that triggers a search.
const minPatternLength = 3

// Engine holds the full catalog (origin) and the active filtered, sorted
// view (current).
//
// Every filter is evaluated afresh over origin, so text, dependency and
// new-since criteria always combine as an AND regardless of call order.
// An Engine is not safe for concurrent use.
type Engine struct {
	origin  []*aur.Package
	current []*aur.Package

	fold cases.Caser

	pattern string
	scope   Scope

	deps DependencyQuery

	newSince    int64
	hasNewSince bool

	sortKey   SortKey
	ascending bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguage matches text patterns with the lowercasing rules of tag
// instead of language-neutral case folding.
func WithLanguage(tag language.Tag) Option {
	return func(e *Engine) {
		if tag != language.Und {
			e.fold = cases.Lower(tag)
		}
	}
}

// New creates an Engine over packages. The slice is retained as origin and
// must not be modified afterwards.
func New(packages []*aur.Package, opts ...Option) *Engine {
	e := &Engine{
		origin: packages,
		fold:   cases.Fold(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.refilter()
	return e
}

// Origin returns the full catalog.
func (e *Engine) Origin() []*aur.Package {
	return e.origin
}

// Current returns the active view.
func (e *Engine) Current() []*aur.Package {
	return e.current
}

// Len returns the size of the active view.
func (e *Engine) Len() int {
	return len(e.current)
}

// FilterByText sets the text criterion. An empty pattern clears it.
// Patterns of one or two characters are ignored and leave the view as is.
func (e *Engine) FilterByText(pattern string, scope Scope) {
	if n := utf8.RuneCountInString(pattern); n > 0 && n < minPatternLength {
		return
	}
	e.pattern = e.fold.String(pattern)
	e.scope = scope
	e.refilter()
}

// FilterByDependencies sets the dependency criterion. A package survives
// when it depends on none of excludes and on all of wants. Names are
// normalized with NormalizeDependency.
func (e *Engine) FilterByDependencies(wants, excludes []string) {
	e.deps = DependencyQuery{
		Wants:    normalizeAll(wants),
		Excludes: normalizeAll(excludes),
	}
	e.refilter()
}

// FilterNewSince keeps packages first submitted strictly after threshold
// (epoch seconds).
func (e *Engine) FilterNewSince(threshold int64) {
	e.newSince = threshold
	e.hasNewSince = true
	e.refilter()
}

// ClearNewSince removes the new-since criterion.
func (e *Engine) ClearNewSince() {
	e.hasNewSince = false
	e.refilter()
}

// Reset clears every filter. The sort order is kept.
func (e *Engine) Reset() {
	e.pattern = ""
	e.deps = DependencyQuery{}
	e.hasNewSince = false
	e.refilter()
}

// SortBy orders the active view by key. The sort is stable and is
// re-applied whenever the filters change.
func (e *Engine) SortBy(key SortKey, ascending bool) {
	e.sortKey = key
	e.ascending = ascending
	e.applySort(e.current)
}

// Find returns the origin package with the given name.
func (e *Engine) Find(name string) (*aur.Package, bool) {
	for _, p := range e.origin {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// ByMaintainer returns the names of origin packages maintained by
// maintainer, sorted.
func (e *Engine) ByMaintainer(maintainer string) []string {
	if maintainer == "" {
		return nil
	}
	var names []string
	for _, p := range e.origin {
		if p.Maintainer == maintainer {
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Reconcile builds the check view: one row per installed package.
//
// Installed packages found in origin get their local version overwritten and
// keep origin order. Installed packages missing from origin are returned as
// synthetic orphan records, sorted by name, after the matches.
func (e *Engine) Reconcile(installed map[string]pacman.LocalPackage) []*aur.Package {
	view := make([]*aur.Package, 0, len(installed))
	seen := make(map[string]bool, len(installed))

	for _, p := range e.origin {
		local, ok := installed[p.Name]
		if !ok || seen[p.Name] {
			continue
		}
		p.SetLocalVersion(local.Version)
		seen[p.Name] = true
		view = append(view, p)
	}

	var orphans []*aur.Package
	for name, local := range installed {
		if seen[name] {
			continue
		}
		orphan := &aur.Package{
			Name:        name,
			Description: local.Description,
			URL:         local.URL,
		}
		orphan.SetLocalVersion(local.Version)
		orphans = append(orphans, orphan)
	}
	sort.Slice(orphans, func(i, j int) bool {
		return orphans[i].Name < orphans[j].Name
	})

	return append(view, orphans...)
}

func (e *Engine) refilter() {
	wants := e.deps.Wants
	var excludes map[string]struct{}
	if len(e.deps.Excludes) > 0 {
		excludes = make(map[string]struct{}, len(e.deps.Excludes))
		for _, d := range e.deps.Excludes {
			excludes[d] = struct{}{}
		}
	}

	view := make([]*aur.Package, 0, len(e.origin))
	for _, p := range e.origin {
		if e.hasNewSince && p.FirstSubmitted <= e.newSince {
			continue
		}
		if len(wants) > 0 || excludes != nil {
			if !matchDependencies(p, wants, excludes) {
				continue
			}
		}
		if e.pattern != "" && !e.matchText(p) {
			continue
		}
		view = append(view, p)
	}

	e.applySort(view)
	e.current = view
}

func (e *Engine) matchText(p *aur.Package) bool {
	haystack := p.Name
	if e.scope == ScopeNameDescription {
		haystack = p.Name + " " + p.Description
	}
	return strings.Contains(e.fold.String(haystack), e.pattern)
}

func matchDependencies(p *aur.Package, wants []string, excludes map[string]struct{}) bool {
	deps := dependencySet(p.Depends)
	for d := range excludes {
		if _, ok := deps[d]; ok {
			return false
		}
	}
	for _, w := range wants {
		if _, ok := deps[w]; !ok {
			return false
		}
	}
	return true
}

func normalizeAll(names []string) []string {
	var out []string
	for _, n := range names {
		if name := NormalizeDependency(n); name != "" {
			out = append(out, name)
		}
	}
	return out
}
