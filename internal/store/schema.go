package store

const schema = `
CREATE TABLE IF NOT EXISTS foreign_packages (
    name TEXT PRIMARY KEY,
    version TEXT NOT NULL,
    description TEXT,
    url TEXT,
    validation TEXT,
    scanned_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS check_runs (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    catalog TEXT,
    total INTEGER NOT NULL,
    synced INTEGER NOT NULL,
    remote_ahead INTEGER NOT NULL,
    local_ahead INTEGER NOT NULL,
    orphans INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS check_results (
    run_id TEXT NOT NULL,
    name TEXT NOT NULL,
    local_version TEXT,
    remote_version TEXT,
    state TEXT NOT NULL,
    out_of_date INTEGER,
    PRIMARY KEY (run_id, name),
    FOREIGN KEY (run_id) REFERENCES check_runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS fetch_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP NOT NULL,
    outcome TEXT NOT NULL,
    status INTEGER,
    bytes INTEGER,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_check_runs_created ON check_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_check_results_state ON check_results(run_id, state);
CREATE INDEX IF NOT EXISTS idx_fetch_log_started ON fetch_log(started_at);
`
