package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/aurkonsult/internal/aur"
	"github.com/blackwell-systems/aurkonsult/internal/pacman"
)

// Inventory operations

// ReplaceInventory swaps the stored foreign package inventory for packages
// in a single transaction.
func (s *Store) ReplaceInventory(packages []pacman.LocalPackage, scannedAt time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM foreign_packages"); err != nil {
		return wrapErr(err, "failed to clear inventory")
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO foreign_packages
		(name, version, description, url, validation, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return wrapErr(err, "failed to prepare inventory insert")
	}
	defer stmt.Close()

	ts := scannedAt.UTC().Format(time.RFC3339)
	for _, pkg := range packages {
		if _, err := stmt.Exec(pkg.Name, pkg.Version, pkg.Description, pkg.URL, pkg.Validation, ts); err != nil {
			return fmt.Errorf("failed to insert package %s: %w", pkg.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit inventory: %w", err)
	}
	return nil
}

// ListInventory returns the stored foreign packages sorted by name.
func (s *Store) ListInventory() ([]pacman.LocalPackage, error) {
	query := `
		SELECT name, version, description, url, validation
		FROM foreign_packages
		ORDER BY name
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrapErr(err, "failed to list inventory")
	}
	defer rows.Close()

	var packages []pacman.LocalPackage
	for rows.Next() {
		var pkg pacman.LocalPackage
		var description, url, validation sql.NullString
		if err := rows.Scan(&pkg.Name, &pkg.Version, &description, &url, &validation); err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}
		pkg.Description = description.String
		pkg.URL = url.String
		pkg.Validation = validation.String
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inventory: %w", err)
	}

	return packages, nil
}

// InventoryScannedAt returns when the inventory was last replaced. The zero
// time means no scan has been stored.
func (s *Store) InventoryScannedAt() (time.Time, error) {
	var ts sql.NullString
	err := s.db.QueryRow("SELECT MAX(scanned_at) FROM foreign_packages").Scan(&ts)
	if err != nil {
		return time.Time{}, wrapErr(err, "failed to get scan time")
	}
	if !ts.Valid {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, ts.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse scanned_at: %w", err)
	}
	return t, nil
}

// Check run operations

// SaveCheckRun stores a reconciled check view and returns the new run.
func (s *Store) SaveCheckRun(view []*aur.Package, catalog string, at time.Time) (*CheckRun, error) {
	run := &CheckRun{
		ID:        uuid.NewString(),
		CreatedAt: at.UTC().Truncate(time.Second),
		Catalog:   catalog,
		Total:     len(view),
	}
	for _, pkg := range view {
		switch pkg.State() {
		case aur.StateSynced:
			run.Synced++
		case aur.StateRemoteAhead:
			run.RemoteAhead++
		case aur.StateLocalAhead:
			run.LocalAhead++
		case aur.StateOrphan:
			run.Orphans++
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO check_runs
		(id, created_at, catalog, total, synced, remote_ahead, local_ahead, orphans)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.CreatedAt.Format(time.RFC3339), run.Catalog, run.Total, run.Synced, run.RemoteAhead, run.LocalAhead, run.Orphans)
	if err != nil {
		return nil, wrapErr(err, "failed to insert check run")
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO check_results
		(run_id, name, local_version, remote_version, state, out_of_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, wrapErr(err, "failed to prepare check result insert")
	}
	defer stmt.Close()

	for _, pkg := range view {
		if _, err := stmt.Exec(run.ID, pkg.Name, pkg.LocalVersion, pkg.Version, pkg.State().String(), pkg.OutOfDate); err != nil {
			return nil, fmt.Errorf("failed to insert check result %s: %w", pkg.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit check run: %w", err)
	}
	return run, nil
}

// LatestCheckRun returns the most recent check run, or nil if none exist.
func (s *Store) LatestCheckRun() (*CheckRun, error) {
	query := `
		SELECT id, created_at, catalog, total, synced, remote_ahead, local_ahead, orphans
		FROM check_runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`

	var run CheckRun
	var createdAt string
	var catalog sql.NullString
	err := s.db.QueryRow(query).Scan(
		&run.ID,
		&createdAt,
		&catalog,
		&run.Total,
		&run.Synced,
		&run.RemoteAhead,
		&run.LocalAhead,
		&run.Orphans,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get latest check run")
	}

	run.Catalog = catalog.String
	run.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for run %s: %w", run.ID, err)
	}
	return &run, nil
}

// CheckResults returns the rows of a check run sorted by name.
func (s *Store) CheckResults(runID string) ([]CheckResult, error) {
	query := `
		SELECT run_id, name, local_version, remote_version, state, out_of_date
		FROM check_results
		WHERE run_id = ?
		ORDER BY name
	`

	rows, err := s.db.Query(query, runID)
	if err != nil {
		return nil, wrapErr(err, "failed to list check results")
	}
	defer rows.Close()

	var results []CheckResult
	for rows.Next() {
		var r CheckResult
		var local, remote sql.NullString
		var outOfDate sql.NullInt64
		if err := rows.Scan(&r.RunID, &r.Name, &local, &remote, &r.State, &outOfDate); err != nil {
			return nil, fmt.Errorf("failed to scan check result: %w", err)
		}
		r.LocalVersion = local.String
		r.RemoteVersion = remote.String
		r.OutOfDate = outOfDate.Int64
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate check results: %w", err)
	}

	return results, nil
}

// Fetch log operations

// RecordFetch logs a catalog fetch. It satisfies aur.Recorder.
func (s *Store) RecordFetch(url string, res aur.Result, started time.Time) error {
	var errText string
	if res.Err != nil {
		errText = res.Err.Error()
	}

	_, err := s.db.Exec(`
		INSERT INTO fetch_log (url, started_at, finished_at, outcome, status, bytes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		url,
		started.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		res.Outcome.String(),
		res.Status,
		res.Bytes,
		errText,
	)
	if err != nil {
		return wrapErr(err, "failed to record fetch")
	}
	return nil
}

// LastFetch returns the most recent fetch attempt, or nil if none exist.
func (s *Store) LastFetch() (*FetchRecord, error) {
	return s.lastFetch("")
}

// LastSuccessfulFetch returns the most recent fetch that left a current
// catalog on disk, or nil if none exist.
func (s *Store) LastSuccessfulFetch() (*FetchRecord, error) {
	return s.lastFetch("WHERE outcome IN ('fresh', 'updated')")
}

func (s *Store) lastFetch(where string) (*FetchRecord, error) {
	query := `
		SELECT id, url, started_at, finished_at, outcome, status, bytes, error
		FROM fetch_log
		` + where + `
		ORDER BY id DESC
		LIMIT 1
	`

	var rec FetchRecord
	var startedAt, finishedAt string
	var status, bytes sql.NullInt64
	var errText sql.NullString
	err := s.db.QueryRow(query).Scan(
		&rec.ID,
		&rec.URL,
		&startedAt,
		&finishedAt,
		&rec.Outcome,
		&status,
		&bytes,
		&errText,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "failed to get last fetch")
	}

	rec.Status = int(status.Int64)
	rec.Bytes = bytes.Int64
	rec.Error = errText.String

	if rec.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}
	if rec.FinishedAt, err = time.Parse(time.RFC3339, finishedAt); err != nil {
		return nil, fmt.Errorf("failed to parse finished_at: %w", err)
	}
	return &rec, nil
}

// FetchHistory returns up to limit fetch attempts, newest first.
func (s *Store) FetchHistory(limit int) ([]FetchRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, url, started_at, finished_at, outcome, status, bytes, error
		FROM fetch_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, wrapErr(err, "failed to list fetch history")
	}
	defer rows.Close()

	var records []FetchRecord
	for rows.Next() {
		var rec FetchRecord
		var startedAt, finishedAt string
		var status, bytes sql.NullInt64
		var errText sql.NullString
		if err := rows.Scan(&rec.ID, &rec.URL, &startedAt, &finishedAt, &rec.Outcome, &status, &bytes, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan fetch record: %w", err)
		}
		rec.Status = int(status.Int64)
		rec.Bytes = bytes.Int64
		rec.Error = errText.String
		rec.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		rec.FinishedAt, _ = time.Parse(time.RFC3339, finishedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fetch history: %w", err)
	}

	return records, nil
}
