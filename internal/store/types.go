package store

import "time"

// CheckRun is one saved reconciliation of the local inventory against the
// catalog.
type CheckRun struct {
	ID          string
	CreatedAt   time.Time
	Catalog     string // catalog file the run was computed from
	Total       int
	Synced      int
	RemoteAhead int
	LocalAhead  int
	Orphans     int
}

// CheckResult is one row of a saved check run.
type CheckResult struct {
	RunID         string
	Name          string
	LocalVersion  string
	RemoteVersion string
	State         string // aur.State string form
	OutOfDate     int64
}

// FetchRecord logs one catalog fetch attempt.
type FetchRecord struct {
	ID         int64
	URL        string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	Status     int
	Bytes      int64
	Error      string
}
