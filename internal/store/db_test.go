package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/aurkonsult/internal/aur"
	"github.com/blackwell-systems/aurkonsult/internal/pacman"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := s.CreateSchema(); err != nil {
		s.Close()
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	return s
}

// TestListInventory_NoSchema_ReturnsErrNotInitialized verifies that calling
// ListInventory on a fresh DB (no CreateSchema) returns ErrNotInitialized.
func TestListInventory_NoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	// Do NOT call CreateSchema: simulate uninitialized database.
	_, err = s.ListInventory()
	if err == nil {
		t.Fatal("ListInventory() should return an error on uninitialized DB")
	}
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ListInventory() error = %v; want errors.Is(err, ErrNotInitialized) to be true", err)
	}
}

func TestLatestCheckRun_NoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	if _, err := s.LatestCheckRun(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("LatestCheckRun() error = %v; want ErrNotInitialized", err)
	}
	if _, err := s.LastFetch(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("LastFetch() error = %v; want ErrNotInitialized", err)
	}
}

// TestErrNotInitialized_ErrorMessage verifies that the ErrNotInitialized
// sentinel tells the user how to fix it.
func TestErrNotInitialized_ErrorMessage(t *testing.T) {
	msg := ErrNotInitialized.Error()
	if !strings.Contains(msg, "aurkonsult scan") {
		t.Errorf("ErrNotInitialized message %q should contain 'aurkonsult scan'", msg)
	}
}

func TestCreateSchema_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	if err := s.CreateSchema(); err != nil {
		t.Errorf("second CreateSchema() failed: %v", err)
	}
}

func TestReplaceInventory(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	first := []pacman.LocalPackage{
		{Name: "yay-bin", Version: "12.3.5-1", Description: "AUR helper", URL: "https://github.com/Jguer/yay", Validation: "none"},
		{Name: "aaa", Version: "1.0-1", Validation: "none"},
	}
	scanned := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := s.ReplaceInventory(first, scanned); err != nil {
		t.Fatalf("ReplaceInventory() failed: %v", err)
	}

	got, err := s.ListInventory()
	if err != nil {
		t.Fatalf("ListInventory() failed: %v", err)
	}
	if len(got) != 2 || got[0].Name != "aaa" || got[1] != first[0] {
		t.Errorf("ListInventory() = %+v", got)
	}

	at, err := s.InventoryScannedAt()
	if err != nil {
		t.Fatalf("InventoryScannedAt() failed: %v", err)
	}
	if !at.Equal(scanned) {
		t.Errorf("InventoryScannedAt() = %v, want %v", at, scanned)
	}

	// A second scan replaces, not merges.
	if err := s.ReplaceInventory([]pacman.LocalPackage{{Name: "zzz", Version: "2"}}, scanned.Add(time.Hour)); err != nil {
		t.Fatalf("ReplaceInventory() failed: %v", err)
	}
	got, _ = s.ListInventory()
	if len(got) != 1 || got[0].Name != "zzz" {
		t.Errorf("after replace ListInventory() = %+v", got)
	}
}

func TestInventoryScannedAt_Empty(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	at, err := s.InventoryScannedAt()
	if err != nil {
		t.Fatalf("InventoryScannedAt() failed: %v", err)
	}
	if !at.IsZero() {
		t.Errorf("InventoryScannedAt() = %v, want zero", at)
	}
}

func TestSaveCheckRun(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	remoteAhead := &aur.Package{Name: "foo", Version: "2.0-1", OutOfDate: 1700000000}
	remoteAhead.SetLocalVersion("1.0-1")
	synced := &aur.Package{Name: "bar", Version: "1.0-1"}
	synced.SetLocalVersion("1.0-1")
	orphan := &aur.Package{Name: "baz"}
	orphan.SetLocalVersion("0.1-1")

	if run, err := s.LatestCheckRun(); err != nil || run != nil {
		t.Fatalf("LatestCheckRun() on empty = %v, %v", run, err)
	}

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	run, err := s.SaveCheckRun([]*aur.Package{remoteAhead, synced, orphan}, "/tmp/packages-meta-v1.json", at)
	if err != nil {
		t.Fatalf("SaveCheckRun() failed: %v", err)
	}
	if run.ID == "" || run.Total != 3 || run.RemoteAhead != 1 || run.Synced != 1 || run.Orphans != 1 || run.LocalAhead != 0 {
		t.Errorf("SaveCheckRun() = %+v", run)
	}

	later, err := s.SaveCheckRun([]*aur.Package{synced}, "", at.Add(time.Minute))
	if err != nil {
		t.Fatalf("SaveCheckRun() failed: %v", err)
	}

	latest, err := s.LatestCheckRun()
	if err != nil {
		t.Fatalf("LatestCheckRun() failed: %v", err)
	}
	if latest.ID != later.ID {
		t.Errorf("LatestCheckRun().ID = %s, want %s", latest.ID, later.ID)
	}

	results, err := s.CheckResults(run.ID)
	if err != nil {
		t.Fatalf("CheckResults() failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("CheckResults() = %d rows, want 3", len(results))
	}

	byName := make(map[string]CheckResult)
	for _, r := range results {
		byName[r.Name] = r
	}
	if r := byName["foo"]; r.State != "remote-ahead" || r.LocalVersion != "1.0-1" || r.RemoteVersion != "2.0-1" || r.OutOfDate != 1700000000 {
		t.Errorf("foo = %+v", r)
	}
	if r := byName["baz"]; r.State != "orphan" || r.RemoteVersion != "" {
		t.Errorf("baz = %+v", r)
	}
}

func TestRecordFetch(t *testing.T) {
	s := setupTestStore(t)
	defer s.Close()

	if rec, err := s.LastFetch(); err != nil || rec != nil {
		t.Fatalf("LastFetch() on empty = %v, %v", rec, err)
	}

	started := time.Now().Add(-time.Minute)
	url := "https://aur.archlinux.org/packages-meta-v1.json.gz"

	if err := s.RecordFetch(url, aur.Result{Outcome: aur.OutcomeUpdated, Status: 200, Bytes: 1234}, started); err != nil {
		t.Fatalf("RecordFetch() failed: %v", err)
	}
	if err := s.RecordFetch(url, aur.Result{Outcome: aur.OutcomeServerError, Status: 502, Err: fmt.Errorf("%w: upstream returned 502", aur.ErrServer)}, started); err != nil {
		t.Fatalf("RecordFetch() failed: %v", err)
	}

	last, err := s.LastFetch()
	if err != nil {
		t.Fatalf("LastFetch() failed: %v", err)
	}
	if last.Outcome != "server-error" || last.Status != 502 || !strings.Contains(last.Error, "502") {
		t.Errorf("LastFetch() = %+v", last)
	}

	ok, err := s.LastSuccessfulFetch()
	if err != nil {
		t.Fatalf("LastSuccessfulFetch() failed: %v", err)
	}
	if ok.Outcome != "updated" || ok.Bytes != 1234 || ok.URL != url {
		t.Errorf("LastSuccessfulFetch() = %+v", ok)
	}

	history, err := s.FetchHistory(10)
	if err != nil {
		t.Fatalf("FetchHistory() failed: %v", err)
	}
	if len(history) != 2 || history[0].Outcome != "server-error" {
		t.Errorf("FetchHistory() = %+v", history)
	}
}

func TestStoreSatisfiesRecorder(t *testing.T) {
	var _ aur.Recorder = (*Store)(nil)
}
