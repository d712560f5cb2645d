package aur

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/blackwell-systems/aurkonsult/internal/logger"
	"github.com/blackwell-systems/aurkonsult/internal/pacman"
)

// minRecordLength is the shortest line treated as a record. Shorter lines
// are the array brackets and blank lines of the dump.
const minRecordLength = 10

// maxLineSize bounds a single catalog line.
const maxLineSize = 16 * 1024 * 1024

// ParseErrorKind classifies a catalog parse failure.
type ParseErrorKind int

const (
	// MalformedLine is a line that is not a JSON object.
	MalformedLine ParseErrorKind = iota + 1
	// MissingRequiredField is a record without a name.
	MissingRequiredField
)

func (k ParseErrorKind) String() string {
	switch k {
	case MalformedLine:
		return "malformed line"
	case MissingRequiredField:
		return "missing required field"
	default:
		return "parse error"
	}
}

// ParseError reports the catalog line that aborted a load.
type ParseError struct {
	Line int
	Kind ParseErrorKind
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("catalog line %d: %s: %v", e.Line, e.Kind, e.Err)
	}
	return fmt.Sprintf("catalog: %s: %v", e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Reader streams packages from a catalog dump, one JSON object per line
// with an optional trailing comma. It is single pass: once Next returns
// false the Reader is exhausted.
//
// Usage:
//
//	r := aur.NewReader(f, installed)
//	for r.Next() {
//		pkg := r.Package()
//	}
//	if err := r.Err(); err != nil { ... }
type Reader struct {
	scanner   *bufio.Scanner
	installed map[string]pacman.LocalPackage
	limit     int

	line  int
	count int
	pkg   *Package
	err   error
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithLimit stops the Reader after n packages. Zero or negative means no
// limit.
func WithLimit(n int) ReaderOption {
	return func(r *Reader) {
		r.limit = n
	}
}

// NewReader returns a Reader over src. Packages whose name is in installed
// get the local version injected.
func NewReader(src io.Reader, installed map[string]pacman.LocalPackage, opts ...ReaderOption) *Reader {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	r := &Reader{
		scanner:   scanner,
		installed: installed,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Next advances to the next package. It returns false at end of input, when
// the limit is reached, or on the first error, which aborts the load.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	if r.limit > 0 && r.count >= r.limit {
		return false
	}

	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) < minRecordLength {
			continue
		}
		line = bytes.TrimSuffix(line, []byte(","))

		pkg, err := ParsePackage(line)
		if err != nil {
			if perr, ok := err.(*ParseError); ok {
				perr.Line = r.line
			}
			r.err = err
			r.pkg = nil
			return false
		}

		if local, ok := r.installed[pkg.Name]; ok {
			pkg.SetLocalVersion(local.Version)
		}

		r.pkg = pkg
		r.count++
		return true
	}

	if err := r.scanner.Err(); err != nil {
		r.err = &ParseError{Line: r.line + 1, Kind: MalformedLine, Err: err}
	}
	r.pkg = nil
	return false
}

// Package returns the package read by the last successful Next.
func (r *Reader) Package() *Package {
	return r.pkg
}

// Err returns the error that stopped the Reader, if any.
func (r *Reader) Err() error {
	return r.err
}

// LoadFile reads the whole catalog at path. Any parse error aborts the load
// and no packages are returned.
func LoadFile(path string, installed map[string]pacman.LocalPackage, opts ...ReaderOption) ([]*Package, error) {
	start := time.Now()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	var packages []*Package
	r := NewReader(f, installed, opts...)
	for r.Next() {
		packages = append(packages, r.Package())
	}
	if err := r.Err(); err != nil {
		return nil, err
	}

	logger.Logger().Debugw("catalog loaded", "path", path, "packages", len(packages), "elapsed", time.Since(start))
	return packages, nil
}
