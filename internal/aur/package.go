// Package aur models the AUR metadata catalog: the record type, the
// conditional fetch of the gzip dump, the streaming loader and the
// secondary per-package lookups.
package aur

import (
	"net/url"
	"strings"

	"github.com/blackwell-systems/aurkonsult/internal/pacman"
)

// DefaultBaseURL is the AUR web endpoint.
const DefaultBaseURL = "https://aur.archlinux.org"

// State is the reconciliation outcome for one package in the check view.
type State int

const (
	// StateUnknown means the package is not installed locally.
	StateUnknown State = iota
	// StateSynced means the local and remote versions are equivalent.
	StateSynced
	// StateLocalAhead means the installed version is newer than the catalog.
	StateLocalAhead
	// StateRemoteAhead means an update is available.
	StateRemoteAhead
	// StateOrphan means the package is installed but absent from the catalog.
	StateOrphan
)

func (s State) String() string {
	switch s {
	case StateSynced:
		return "synced"
	case StateLocalAhead:
		return "local-ahead"
	case StateRemoteAhead:
		return "remote-ahead"
	case StateOrphan:
		return "orphan"
	default:
		return "unknown"
	}
}

// Package is one normalized catalog entry.
type Package struct {
	ID             int64
	Name           string
	Version        string
	PackageBase    string
	PackageBaseID  int64
	Description    string
	URL            string
	URLPath        string
	Maintainer     string
	Submitter      string
	CoMaintainers  []string
	OutOfDate      int64
	FirstSubmitted int64
	LastModified   int64
	Popularity     float64
	NumVotes       int64
	License        []string
	Keywords       []string
	Groups         []string
	Depends        []string
	MakeDepends    []string
	OptDepends     []string
	CheckDepends   []string
	Conflicts      []string
	Provides       []string
	Replaces       []string

	// LocalVersion is the installed version, empty when not installed.
	LocalVersion string
	// VerCmp is Vercmp(LocalVersion, Version), zero unless both are set.
	VerCmp int

	// baseIsName records that PackageBase was cleared because it equalled
	// Name, so Wire can restore it.
	baseIsName bool
}

// SetLocalVersion assigns the installed version and recomputes VerCmp.
func (p *Package) SetLocalVersion(version string) {
	p.LocalVersion = version
	p.VerCmp = 0
	if p.LocalVersion != "" && p.Version != "" {
		p.VerCmp = pacman.Vercmp(p.LocalVersion, p.Version)
	}
}

// Installed reports whether a local version is known.
func (p *Package) Installed() bool {
	return p.LocalVersion != ""
}

// Flagged reports whether the package is marked out of date.
func (p *Package) Flagged() bool {
	return p.OutOfDate != 0
}

// State derives the reconciliation state from the version pair.
func (p *Package) State() State {
	switch {
	case p.LocalVersion == "":
		return StateUnknown
	case p.Version == "":
		return StateOrphan
	case p.VerCmp < 0:
		return StateRemoteAhead
	case p.VerCmp > 0:
		return StateLocalAhead
	default:
		return StateSynced
	}
}

// Base returns the package base, falling back to the name.
func (p *Package) Base() string {
	if p.PackageBase != "" {
		return p.PackageBase
	}
	return p.Name
}

// Hostname returns the last two labels of the upstream URL host, e.g.
// "github.com". It returns "" when there is no usable URL.
func (p *Package) Hostname() string {
	if p.URL == "" {
		return ""
	}
	u, err := url.Parse(p.URL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	labels := strings.Split(u.Hostname(), ".")
	if len(labels) > 2 {
		labels = labels[len(labels)-2:]
	}
	return strings.Join(labels, ".")
}

// PKGBUILDURL returns the cgit tree URL of the package's PKGBUILD.
func (p *Package) PKGBUILDURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + "/cgit/aur.git/tree/PKGBUILD?h=" + url.QueryEscape(p.Base())
}

// AURURL returns the package's page on the AUR web interface.
func (p *Package) AURURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + "/packages/" + url.PathEscape(p.Name) + "/"
}
