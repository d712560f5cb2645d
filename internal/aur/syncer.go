package aur

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/blackwell-systems/aurkonsult/internal/logger"
)

// ErrFetchInProgress is returned by TrySync while a fetch is running.
var ErrFetchInProgress = errors.New("catalog fetch already in progress")

// Target names the files and URL of one catalog.
type Target struct {
	URL      string
	DataFile string
	MetaFile string
}

// Recorder receives every completed fetch.
type Recorder interface {
	RecordFetch(url string, res Result, started time.Time) error
}

// Syncer runs catalog fetches in the background, at most one per target.
//
// Concurrent Sync calls for the same target share a single fetch. Each
// caller may give up on its own context without cancelling the fetch for
// the others.
type Syncer struct {
	fetcher  *Fetcher
	recorder Recorder

	group singleflight.Group

	mu       sync.Mutex
	inFlight map[string]bool
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithRecorder records completed fetches.
func WithRecorder(r Recorder) SyncerOption {
	return func(s *Syncer) {
		s.recorder = r
	}
}

// NewSyncer creates a Syncer around fetcher.
func NewSyncer(fetcher *Fetcher, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		fetcher:  fetcher,
		inFlight: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync fetches target, joining a fetch already in flight for the same data
// file. shared reports whether the result came from another caller's fetch.
func (s *Syncer) Sync(ctx context.Context, target Target) (res Result, shared bool, err error) {
	res, ran, err := s.do(ctx, target)
	return res, !ran && err == nil, err
}

// TrySync is Sync that refuses to wait on another caller's fetch.
func (s *Syncer) TrySync(ctx context.Context, target Target) (Result, error) {
	if s.InFlight(target.DataFile) {
		return Result{}, ErrFetchInProgress
	}
	res, ran, err := s.do(ctx, target)
	if err != nil {
		return Result{}, err
	}
	if !ran {
		return Result{}, ErrFetchInProgress
	}
	return res, nil
}

// do runs or joins the fetch of target. ran reports whether this caller
// started the fetch; singleflight marks every caller of a call with
// duplicates as shared, the one that ran it included.
func (s *Syncer) do(ctx context.Context, target Target) (Result, bool, error) {
	// Only read after receiving from ch, which orders it after the write.
	var ran bool
	ch := s.group.DoChan(target.DataFile, func() (any, error) {
		ran = true
		s.setInFlight(target.DataFile, true)
		defer s.setInFlight(target.DataFile, false)

		return s.run(context.WithoutCancel(ctx), target), nil
	})

	select {
	case r := <-ch:
		return r.Val.(Result), ran, nil
	case <-ctx.Done():
		return Result{}, false, ctx.Err()
	}
}

// InFlight reports whether a fetch of dataFile is running.
func (s *Syncer) InFlight(dataFile string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight[dataFile]
}

func (s *Syncer) setInFlight(dataFile string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v {
		s.inFlight[dataFile] = true
	} else {
		delete(s.inFlight, dataFile)
	}
}

func (s *Syncer) run(ctx context.Context, target Target) Result {
	started := time.Now()
	res := s.fetcher.Fetch(ctx, target.DataFile, target.URL, target.MetaFile)

	log := logger.Logger()
	log.Debugw("catalog fetch finished", "url", target.URL, "outcome", res.Outcome.String(), "status", res.Status, "elapsed", time.Since(started))

	if s.recorder != nil {
		if err := s.recorder.RecordFetch(target.URL, res, started); err != nil {
			log.Warnw("failed to record fetch", "error", err)
		}
	}
	return res
}
