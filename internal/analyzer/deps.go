package analyzer

import (
	"strings"
)

// ParseDependencyQuery parses a whitespace separated list of dependency
// names. "-name" excludes packages depending on name; "+name" and a bare
// "name" require it.
//
// Example: "+qt6-base -electron cmake"
func ParseDependencyQuery(s string) DependencyQuery {
	var q DependencyQuery
	for _, tok := range strings.Fields(s) {
		switch {
		case strings.HasPrefix(tok, "-"):
			if name := NormalizeDependency(tok[1:]); name != "" {
				q.Excludes = append(q.Excludes, name)
			}
		case strings.HasPrefix(tok, "+"):
			if name := NormalizeDependency(tok[1:]); name != "" {
				q.Wants = append(q.Wants, name)
			}
		default:
			if name := NormalizeDependency(tok); name != "" {
				q.Wants = append(q.Wants, name)
			}
		}
	}
	return q
}

// NormalizeDependency lowercases a dependency and strips any version
// constraint or optdepends description, so "Zlib>=1.2" and
// "zlib: compression" both become "zlib".
func NormalizeDependency(dep string) string {
	dep = strings.TrimSpace(dep)
	if i := strings.IndexAny(dep, "<>=:"); i >= 0 {
		dep = dep[:i]
	}
	return strings.ToLower(strings.TrimSpace(dep))
}

// dependencySet normalizes a package's runtime dependencies.
func dependencySet(deps []string) map[string]struct{} {
	set := make(map[string]struct{}, len(deps))
	for _, d := range deps {
		if name := NormalizeDependency(d); name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}
