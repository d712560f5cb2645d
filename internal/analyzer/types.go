package analyzer

import (
	"fmt"
	"strings"
)

// Scope selects the text a search pattern is matched against.
type Scope int

const (
	// ScopeName matches the package name only.
	ScopeName Scope = iota
	// ScopeNameDescription matches "name description".
	ScopeNameDescription
)

// SortKey names a sortable package attribute.
type SortKey string

const (
	SortNone         SortKey = ""
	SortName         SortKey = "name"
	SortVersion      SortKey = "version"
	SortLocalVersion SortKey = "local"
	SortMaintainer   SortKey = "maintainer"
	SortVotes        SortKey = "votes"
	SortPopularity   SortKey = "popularity"
	SortSubmitted    SortKey = "submitted"
	SortModified     SortKey = "modified"
	SortOutOfDate    SortKey = "outofdate"
	SortState        SortKey = "state"
)

// DefaultSort lists the most recently modified packages first.
const DefaultSort = SortModified

// SortKeys lists every accepted sort key, for help text and completion.
var SortKeys = []SortKey{
	SortName,
	SortVersion,
	SortLocalVersion,
	SortMaintainer,
	SortVotes,
	SortPopularity,
	SortSubmitted,
	SortModified,
	SortOutOfDate,
	SortState,
}

// ParseSortKey validates a user-supplied sort key.
func ParseSortKey(s string) (SortKey, error) {
	key := SortKey(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range SortKeys {
		if k == key {
			return k, nil
		}
	}
	names := make([]string, len(SortKeys))
	for i, k := range SortKeys {
		names[i] = string(k)
	}
	return SortNone, fmt.Errorf("invalid sort key %q (valid: %s)", s, strings.Join(names, ", "))
}

// DependencyQuery is a parsed dependency filter.
type DependencyQuery struct {
	Wants    []string
	Excludes []string
}

// Empty reports whether the query filters nothing.
func (q DependencyQuery) Empty() bool {
	return len(q.Wants) == 0 && len(q.Excludes) == 0
}
