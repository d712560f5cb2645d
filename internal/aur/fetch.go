package aur

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/blackwell-systems/aurkonsult/internal/logger"
)

// DefaultFetchTimeout bounds a full catalog download.
const DefaultFetchTimeout = 5 * time.Minute

var (
	// ErrNetwork is a transport failure talking to the AUR.
	ErrNetwork = errors.New("network error")
	// ErrServer is an unexpected HTTP status from the AUR.
	ErrServer = errors.New("server error")
	// ErrNotFound is a 404 from the AUR.
	ErrNotFound = errors.New("not found")
	// ErrDecompression is a corrupt gzip stream.
	ErrDecompression = errors.New("decompression error")
)

// Outcome is the result of a catalog fetch.
type Outcome int

const (
	// OutcomeFresh means the cached catalog is current. Nothing was written.
	OutcomeFresh Outcome = iota + 1
	// OutcomeUpdated means a new catalog was downloaded and written.
	OutcomeUpdated
	// OutcomeNotFound means the server has no catalog at the URL.
	OutcomeNotFound
	// OutcomeServerError covers transport, status and decompression
	// failures. The previous cache is left intact.
	OutcomeServerError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFresh:
		return "fresh"
	case OutcomeUpdated:
		return "updated"
	case OutcomeNotFound:
		return "not-found"
	case OutcomeServerError:
		return "server-error"
	default:
		return "unknown"
	}
}

// Result describes one fetch.
type Result struct {
	Outcome Outcome
	// Status is the HTTP status of the deciding response, 0 if none.
	Status int
	// Err wraps one of ErrNetwork, ErrServer, ErrNotFound or
	// ErrDecompression for the failure outcomes. It is nil otherwise.
	Err error
	// Bytes is the decompressed size written on OutcomeUpdated.
	Bytes int64
	// ModTime is the modification time of the written catalog.
	ModTime time.Time
}

// ProgressFunc returns a writer that receives the compressed body as it is
// downloaded. total is the Content-Length, or -1 when unknown.
type ProgressFunc func(total int64) io.Writer

// Fetcher downloads the gzip catalog dump with HTTP conditional requests.
//
// A Fetcher has no internal locking. Concurrent fetches of the same target
// must be serialized by the caller; see Syncer.
type Fetcher struct {
	client   *http.Client
	progress ProgressFunc
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the HTTP client used for catalog requests.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithProgress reports download progress to the writer returned by fn.
func WithProgress(fn ProgressFunc) FetcherOption {
	return func(f *Fetcher) {
		f.progress = fn
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{}
	for _, opt := range opts {
		opt(f)
	}
	f.client = newClient(f.client, DefaultFetchTimeout)
	return f
}

// IsFresh is the cache freshness rule: the cache is current when it was
// written after the server's Last-Modified, or when the server's Expires
// precedes the cache's write time.
func IsFresh(localModTime, lastModified, expires time.Time) bool {
	return localModTime.After(lastModified) || expires.Before(localModTime)
}

// Fetch brings target up to date with sourceURL.
//
// When target exists, a HEAD request decides freshness first; otherwise the
// body is fetched unconditionally. A successful download is decompressed into
// a temporary file next to target and renamed over it, then metaFile is
// rewritten with the new modification time in epoch seconds. Failures never
// touch the existing files.
func (f *Fetcher) Fetch(ctx context.Context, target, sourceURL, metaFile string) Result {
	log := logger.Logger()

	var localModTime time.Time
	info, err := os.Stat(target)
	exists := err == nil
	if exists {
		localModTime = info.ModTime()

		fresh, status, err := f.probe(ctx, sourceURL, localModTime)
		if err != nil {
			log.Warnw("catalog freshness probe failed", "url", sourceURL, "error", err)
			return Result{Outcome: OutcomeServerError, Err: fmt.Errorf("%w: %w", ErrNetwork, err)}
		}
		if fresh {
			return Result{Outcome: OutcomeFresh, Status: status, ModTime: localModTime}
		}
	}

	return f.download(ctx, target, sourceURL, metaFile, localModTime, exists)
}

// probe issues the HEAD request and applies the IsFresh rule. When neither
// header proves freshness the cache counts as stale, so the conditional GET
// decides.
func (f *Fetcher) probe(ctx context.Context, sourceURL string, localModTime time.Time) (bool, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, sourceURL, nil)
	if err != nil {
		return false, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := f.client.Do(req)
	if err != nil {
		return false, 0, err
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, resp.StatusCode, nil
	}

	lastModified, lmErr := headerDate(resp.Header, "Last-Modified")
	expires, expErr := headerDate(resp.Header, "Expires")

	logger.Logger().Debugw("catalog freshness inputs",
		"local", localModTime.UTC(),
		"last_modified", lastModified,
		"expires", expires,
		"status", resp.StatusCode)

	// Each header decides its own half of the rule; a missing or bad one
	// only fails that half.
	fresh := (lmErr == nil && localModTime.After(lastModified)) ||
		(expErr == nil && expires.Before(localModTime))
	if fresh {
		return true, http.StatusNotModified, nil
	}
	return false, resp.StatusCode, nil
}

// headerDate parses a date header. An absent, malformed or sentinel date is
// an error.
func headerDate(h http.Header, key string) (time.Time, error) {
	value := h.Get(key)
	if value == "" {
		return time.Time{}, fmt.Errorf("missing %s header", key)
	}
	t, ok, err := ParseHTTPDate(value)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return t, fmt.Errorf("unknown month in %s header %q", key, value)
	}
	return t, nil
}

func (f *Fetcher) download(ctx context.Context, target, sourceURL, metaFile string, localModTime time.Time, exists bool) Result {
	log := logger.Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return Result{Outcome: OutcomeServerError, Err: fmt.Errorf("%w: %w", ErrNetwork, err)}
	}
	req.Header.Set("Accept-Encoding", "gzip")
	if exists {
		req.Header.Set("If-Modified-Since", FormatHTTPDate(localModTime))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		log.Warnw("catalog download failed", "url", sourceURL, "error", err)
		return Result{Outcome: OutcomeServerError, Err: fmt.Errorf("%w: %w", ErrNetwork, err)}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return Result{Outcome: OutcomeFresh, Status: resp.StatusCode, ModTime: localModTime}
	case resp.StatusCode == http.StatusNotFound:
		return Result{Outcome: OutcomeNotFound, Status: resp.StatusCode, Err: fmt.Errorf("%w: %s", ErrNotFound, sourceURL)}
	case resp.StatusCode != http.StatusOK:
		log.Warnw("catalog download rejected", "url", sourceURL, "status", resp.StatusCode)
		return Result{Outcome: OutcomeServerError, Status: resp.StatusCode, Err: fmt.Errorf("%w: upstream returned %d", ErrServer, resp.StatusCode)}
	}

	var body io.Reader = resp.Body
	if f.progress != nil {
		if w := f.progress(resp.ContentLength); w != nil {
			body = io.TeeReader(body, w)
		}
	}

	written, err := writeGzip(target, body)
	if err != nil {
		log.Warnw("catalog write failed, keeping previous cache", "target", target, "error", err)
		return Result{Outcome: OutcomeServerError, Status: resp.StatusCode, Err: err}
	}

	info, err := os.Stat(target)
	if err != nil {
		return Result{Outcome: OutcomeServerError, Status: resp.StatusCode, Err: fmt.Errorf("failed to stat catalog: %w", err)}
	}

	if err := WriteMeta(metaFile, info.ModTime()); err != nil {
		log.Warnw("failed to record fetch time", "meta", metaFile, "error", err)
	}

	log.Debugw("catalog updated", "target", target, "bytes", written)
	return Result{Outcome: OutcomeUpdated, Status: resp.StatusCode, Bytes: written, ModTime: info.ModTime()}
}

// sourceReader remembers whether a read error came from the network.
type sourceReader struct {
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		s.err = err
	}
	return n, err
}

// writeGzip decompresses src into a temporary file beside target and renames
// it into place. target is untouched unless the whole stream decodes.
func writeGzip(target string, src io.Reader) (int64, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	source := &sourceReader{r: src}
	written, err := decompress(tmp, source)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to write catalog: %w", closeErr)
	}
	if err != nil {
		if source.err != nil {
			return 0, fmt.Errorf("%w: %w", ErrNetwork, source.err)
		}
		return 0, err
	}

	if err := os.Rename(tmpName, target); err != nil {
		return 0, fmt.Errorf("failed to replace catalog: %w", err)
	}
	tmpName = ""
	return written, nil
}

func decompress(dst io.Writer, src io.Reader) (int64, error) {
	gz, err := gzip.NewReader(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDecompression, err)
	}
	defer func() { _ = gz.Close() }()

	n, err := io.Copy(dst, gz)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrDecompression, err)
	}
	return n, nil
}

// WriteMeta records modTime as epoch seconds in path.
func WriteMeta(path string, modTime time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create meta directory: %w", err)
	}
	data := []byte(strconv.FormatInt(modTime.Unix(), 10))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write meta file: %w", err)
	}
	return nil
}
