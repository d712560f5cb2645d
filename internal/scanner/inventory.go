package scanner

import (
	"fmt"
	"sort"
	"time"

	"github.com/blackwell-systems/aurkonsult/internal/logger"
	"github.com/blackwell-systems/aurkonsult/internal/pacman"
)

// Changes describes how a scan differs from the stored inventory.
type Changes struct {
	Added   []string
	Removed []string
	Changed []string // version differs
}

// Empty reports whether the scan left the inventory unchanged.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// ScanPackages reads the foreign packages from the pacman local database,
// replaces the stored inventory with them and reports what changed.
func (s *Scanner) ScanPackages() ([]pacman.LocalPackage, Changes, error) {
	packages, err := pacman.ScanLocal(s.dbPath)
	if err != nil {
		return nil, Changes{}, fmt.Errorf("failed to scan local database: %w", err)
	}

	previous, err := s.store.ListInventory()
	if err != nil {
		return nil, Changes{}, fmt.Errorf("failed to load previous inventory: %w", err)
	}

	if err := s.store.ReplaceInventory(packages, time.Now()); err != nil {
		return nil, Changes{}, fmt.Errorf("failed to store inventory: %w", err)
	}

	changes := Diff(previous, packages)
	logger.Logger().Debugw("scanned local database",
		"path", s.dbPath,
		"foreign", len(packages),
		"added", len(changes.Added),
		"removed", len(changes.Removed),
		"changed", len(changes.Changed),
	)
	return packages, changes, nil
}

// GetInventory returns the current package inventory from the database.
// This is a cached view and does not re-read the pacman database.
func (s *Scanner) GetInventory() ([]pacman.LocalPackage, error) {
	packages, err := s.store.ListInventory()
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}
	return packages, nil
}

// Installed returns the stored inventory keyed by name, rescanning first
// when nothing has been stored yet.
func (s *Scanner) Installed() (map[string]pacman.LocalPackage, error) {
	packages, err := s.GetInventory()
	if err != nil {
		return nil, err
	}
	if len(packages) == 0 {
		if packages, _, err = s.ScanPackages(); err != nil {
			return nil, err
		}
	}
	return pacman.Index(packages), nil
}

// Diff compares two inventories by name. Each list in the result is sorted.
func Diff(before, after []pacman.LocalPackage) Changes {
	old := pacman.Index(before)
	cur := pacman.Index(after)

	var c Changes
	for name, pkg := range cur {
		prev, ok := old[name]
		switch {
		case !ok:
			c.Added = append(c.Added, name)
		case prev.Version != pkg.Version:
			c.Changed = append(c.Changed, name)
		}
	}
	for name := range old {
		if _, ok := cur[name]; !ok {
			c.Removed = append(c.Removed, name)
		}
	}

	sort.Strings(c.Added)
	sort.Strings(c.Removed)
	sort.Strings(c.Changed)
	return c
}
