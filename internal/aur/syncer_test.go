package aur

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu      sync.Mutex
	results []Result
}

func (r *fakeRecorder) RecordFetch(url string, res Result, started time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
	return nil
}

// blockingServer holds every GET until release is closed.
func blockingServer(t *testing.T, body []byte) (*httptest.Server, chan struct{}, chan struct{}, *int32) {
	t.Helper()
	started := make(chan struct{}, 16)
	release := make(chan struct{})
	var gets int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		atomic.AddInt32(&gets, 1)
		started <- struct{}{}
		<-release
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return srv, started, release, &gets
}

func TestSyncer_SharesInFlightFetch(t *testing.T) {
	srv, started, release, gets := blockingServer(t, gzipBytes(t, catalogBody))
	recorder := &fakeRecorder{}
	syncer := NewSyncer(NewFetcher(), WithRecorder(recorder))

	dir := t.TempDir()
	target := Target{
		URL:      srv.URL + "/packages-meta-v1.json.gz",
		DataFile: filepath.Join(dir, "packages-meta-v1.json"),
		MetaFile: filepath.Join(dir, "packages-meta-v1.time"),
	}

	type syncResult struct {
		res    Result
		shared bool
		err    error
	}
	results := make(chan syncResult, 2)
	run := func() {
		res, shared, err := syncer.Sync(context.Background(), target)
		results <- syncResult{res, shared, err}
	}

	go run()
	<-started
	assert.True(t, syncer.InFlight(target.DataFile))

	_, err := syncer.TrySync(context.Background(), target)
	assert.True(t, errors.Is(err, ErrFetchInProgress))

	go run()
	// Give the second caller time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		r := <-results
		require.NoError(t, r.err)
		assert.Equal(t, OutcomeUpdated, r.res.Outcome)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(gets))
	assert.False(t, syncer.InFlight(target.DataFile))

	recorder.mu.Lock()
	assert.Len(t, recorder.results, 1)
	recorder.mu.Unlock()

	data, err := os.ReadFile(target.DataFile)
	require.NoError(t, err)
	assert.Equal(t, catalogBody, string(data))
}

func TestSyncer_TrySyncKeepsOwnResultWhenJoined(t *testing.T) {
	srv, started, release, gets := blockingServer(t, gzipBytes(t, catalogBody))
	syncer := NewSyncer(NewFetcher())

	dir := t.TempDir()
	target := Target{
		URL:      srv.URL + "/packages-meta-v1.json.gz",
		DataFile: filepath.Join(dir, "packages-meta-v1.json"),
		MetaFile: filepath.Join(dir, "packages-meta-v1.time"),
	}

	type tryResult struct {
		res Result
		err error
	}
	owner := make(chan tryResult, 1)
	go func() {
		res, err := syncer.TrySync(context.Background(), target)
		owner <- tryResult{res, err}
	}()
	<-started

	joined := make(chan bool, 1)
	go func() {
		_, shared, err := syncer.Sync(context.Background(), target)
		assert.NoError(t, err)
		joined <- shared
	}()
	// Give the second caller time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)

	r := <-owner
	require.NoError(t, r.err)
	assert.Equal(t, OutcomeUpdated, r.res.Outcome)
	assert.True(t, <-joined, "the joining caller should see a shared result")
	assert.Equal(t, int32(1), atomic.LoadInt32(gets))
}

func TestSyncer_CallerCancelDoesNotAbortFetch(t *testing.T) {
	srv, started, release, _ := blockingServer(t, gzipBytes(t, catalogBody))
	syncer := NewSyncer(NewFetcher())

	dir := t.TempDir()
	target := Target{
		URL:      srv.URL + "/packages-meta-v1.json.gz",
		DataFile: filepath.Join(dir, "packages-meta-v1.json"),
		MetaFile: filepath.Join(dir, "packages-meta-v1.time"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := syncer.Sync(ctx, target)
		done <- err
	}()

	<-started
	cancel()
	assert.True(t, errors.Is(<-done, context.Canceled))

	close(release)
	require.Eventually(t, func() bool {
		_, err := os.Stat(target.MetaFile)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSyncer_TrySyncIdle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	res, err := NewSyncer(NewFetcher()).TrySync(context.Background(), Target{
		URL:      srv.URL + "/missing.json.gz",
		DataFile: filepath.Join(dir, "missing.json"),
		MetaFile: filepath.Join(dir, "missing.time"),
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
}
