// Package state provides SQLite-based run history for Cohort.
// Bundles are stored per run so past planning decisions can be listed and
// replayed (~/.local/share/cohort/cohort.db, or a project-local path).
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ShayCichocki/cohort/internal/orchestrator"
)

// DB wraps an SQLite database connection with run-history operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// RunRecord is one row of run history.
type RunRecord struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Topology  string    `json:"topology"`
	Tasks     int       `json:"tasks"`
	Batches   int       `json:"batches"`
	RunBudget int64     `json:"run_budget"`
}

// GlobalDBPath returns the path to the global Cohort database.
func GlobalDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "cohort", "cohort.db")
}

// Open opens an SQLite database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// OpenGlobal opens the global Cohort database.
func OpenGlobal() (*DB, error) {
	return Open(GlobalDBPath())
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// migrate creates the runs table if it does not exist.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id     TEXT PRIMARY KEY,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			topology   TEXT NOT NULL,
			tasks      INTEGER NOT NULL,
			batches    INTEGER NOT NULL,
			run_budget INTEGER NOT NULL,
			bundle     TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	return nil
}

// SaveBundle stores a planning bundle, replacing any record for the same run.
// Re-planning the same run id is idempotent, so replace is the right verb.
func (db *DB) SaveBundle(bundle *orchestrator.Bundle) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	payload, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("marshal bundle: %w", err)
	}

	topology := string(bundle.Recommendation.Chosen)
	if topology == "" {
		topology = string(bundle.Recommendation.BestEffort)
	}

	_, err = db.conn.Exec(`
		INSERT OR REPLACE INTO runs (run_id, topology, tasks, batches, run_budget, bundle)
		VALUES (?, ?, ?, ?, ?, ?)
	`, bundle.RunID, topology, len(bundle.Plan.TopologicalOrder), len(bundle.Plan.Batches), bundle.Plan.RunBudget, string(payload))
	if err != nil {
		return fmt.Errorf("save run %s: %w", bundle.RunID, err)
	}
	return nil
}

// GetBundle loads the stored bundle for a run id.
func (db *DB) GetBundle(runID string) (*orchestrator.Bundle, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var payload string
	row := db.conn.QueryRow("SELECT bundle FROM runs WHERE run_id = ?", runID)
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	bundle := &orchestrator.Bundle{}
	if err := json.Unmarshal([]byte(payload), bundle); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", runID, err)
	}
	return bundle, nil
}

// ListRuns returns run history, newest first, capped at limit.
// A non-positive limit lists everything.
func (db *DB) ListRuns(limit int) ([]RunRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	query := "SELECT run_id, created_at, topology, tasks, batches, run_budget FROM runs ORDER BY created_at DESC, run_id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.conn.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.RunID, &rec.CreatedAt, &rec.Topology, &rec.Tasks, &rec.Batches, &rec.RunBudget); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteRun removes a run from history.
func (db *DB) DeleteRun(runID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	result, err := db.conn.Exec("DELETE FROM runs WHERE run_id = ?", runID)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}
