package pacman

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blackwell-systems/aurkonsult/internal/logger"
)

// DefaultDBPath is pacman's database root.
const DefaultDBPath = "/var/lib/pacman"

// ValidationNone is the %VALIDATION% value pacman records for packages that
// were not installed from a signed repository.
const ValidationNone = "none"

// LocalPackage is one foreign package read from the local pacman database.
type LocalPackage struct {
	Name        string
	Version     string
	Description string
	URL         string
	Validation  string
}

// descriptor field markers
const (
	markerName       = "%NAME%"
	markerVersion    = "%VERSION%"
	markerDesc       = "%DESC%"
	markerURL        = "%URL%"
	markerValidation = "%VALIDATION%"
)

// ScanLocal walks <dbPath>/local and returns every installed package whose
// validation marker is "none", sorted by name.
//
// Unreadable or malformed descriptors are skipped. Only a failure to list the
// local directory itself is returned as an error.
func ScanLocal(dbPath string) ([]LocalPackage, error) {
	localDir := filepath.Join(dbPath, "local")

	entries, err := os.ReadDir(localDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read local database %s: %w", localDir, err)
	}

	log := logger.Logger()
	var packages []LocalPackage

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		descPath := filepath.Join(localDir, entry.Name(), "desc")
		pkg, ok, err := readDescFile(descPath)
		if err != nil {
			log.Debugw("skipping unreadable descriptor", "path", descPath, "error", err)
			continue
		}
		if !ok {
			continue
		}
		packages = append(packages, pkg)
	}

	sort.SliceStable(packages, func(i, j int) bool {
		return packages[i].Name < packages[j].Name
	})

	log.Debugw("scanned local database", "path", localDir, "entries", len(entries), "foreign", len(packages))
	return packages, nil
}

func readDescFile(path string) (LocalPackage, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return LocalPackage{}, false, err
	}
	defer f.Close()

	return ParseDesc(f)
}

// ParseDesc reads a pacman desc file and reports whether it describes a
// foreign package. A descriptor missing a name or version, or whose
// validation is anything but "none", yields ok == false.
func ParseDesc(r io.Reader) (pkg LocalPackage, ok bool, err error) {
	scanner := bufio.NewScanner(r)

	// The value of a marker is the line immediately after it.
	var pending *string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if pending != nil {
			*pending = line
			pending = nil
			continue
		}

		switch line {
		case markerName:
			pending = &pkg.Name
		case markerVersion:
			pending = &pkg.Version
		case markerDesc:
			pending = &pkg.Description
		case markerURL:
			pending = &pkg.URL
		case markerValidation:
			pending = &pkg.Validation
		}
	}
	if err := scanner.Err(); err != nil {
		return LocalPackage{}, false, fmt.Errorf("failed to read descriptor: %w", err)
	}

	if pkg.Name == "" || pkg.Version == "" || pkg.Validation != ValidationNone {
		return LocalPackage{}, false, nil
	}
	return pkg, true, nil
}

// Index maps packages by name. Later duplicates replace earlier ones.
func Index(packages []LocalPackage) map[string]LocalPackage {
	index := make(map[string]LocalPackage, len(packages))
	for _, pkg := range packages {
		index[pkg.Name] = pkg
	}
	return index
}
