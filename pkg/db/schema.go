package db

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Runs: one row per collect invocation
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,          -- snapshot timestamp layout, local zone
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    categories TEXT NOT NULL,          -- comma separated
    sources TEXT NOT NULL,             -- comma separated
    success_count INTEGER DEFAULT 0,
    failed_count INTEGER DEFAULT 0,
    skipped_count INTEGER DEFAULT 0,
    manifest_path TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

-- Run results: one row per (category, source) attempt
CREATE TABLE IF NOT EXISTS run_results (
    result_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    category TEXT NOT NULL,
    source TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('success', 'failed', 'skipped')),
    timestamp TEXT,
    file_path TEXT,
    user_agent TEXT,
    error_message TEXT,
    field_count INTEGER DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_results_run ON run_results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_category_source ON run_results(category, source);
CREATE INDEX IF NOT EXISTS idx_results_status ON run_results(status);
`
