// Package history records check results in a SQLite database so that
// diagnostics can be compared across runs of `sage check` and `sage watch`.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	// SQLite driver (pure Go, no CGO required)
	_ "modernc.org/sqlite"

	"github.com/sambeau/sage/pkg/sage/errors"
)

// DefaultFilename is the database created in the base directory when no
// path is configured.
const DefaultFilename = "sage_history.db"

// History stores check runs and their diagnostics.
type History struct {
	mu          sync.RWMutex
	db          *sql.DB
	path        string
	maxSize     int64
	truncatePct int
}

// Run is one check of one file.
type Run struct {
	ID          int64
	File        string
	CheckedAt   time.Time
	TagHelpers  int
	Recovered   int
	Diagnostics []*errors.Diagnostic
}

// Config holds configuration for the history database.
type Config struct {
	Path        string // Database file path
	MaxSize     int64  // Max size in bytes (default 10MB)
	TruncatePct int    // Percentage of runs deleted when truncating (default 25%)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxSize:     10 * 1024 * 1024,
		TruncatePct: 25,
	}
}

// Open opens or creates the history database. A relative or empty path is
// resolved against baseDir.
func Open(baseDir string, cfg Config) (*History, error) {
	path := cfg.Path
	if path == "" {
		path = filepath.Join(baseDir, DefaultFilename)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to history database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	h := &History{
		db:          db,
		path:        path,
		maxSize:     cfg.MaxSize,
		truncatePct: cfg.TruncatePct,
	}
	if h.maxSize == 0 {
		h.maxSize = 10 * 1024 * 1024
	}
	if h.truncatePct == 0 {
		h.truncatePct = 25
	}

	if err := h.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return h, nil
}

func (h *History) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file TEXT NOT NULL,
			checked_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			tag_helpers INTEGER NOT NULL DEFAULT 0,
			recovered INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS diagnostics (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			class TEXT NOT NULL,
			code TEXT NOT NULL,
			message TEXT NOT NULL,
			line INTEGER NOT NULL,
			col INTEGER NOT NULL,
			pos INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_file ON runs(file);
		CREATE INDEX IF NOT EXISTS idx_diagnostics_run ON diagnostics(run_id);
	`
	_, err := h.db.Exec(schema)
	return err
}

// Record stores a run and returns its ID. CheckedAt and ID are ignored.
func (h *History) Record(run Run) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.maybeAutoTruncate(); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] history truncation failed: %v\n", err)
	}

	tx, err := h.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO runs (file, tag_helpers, recovered)
		VALUES (?, ?, ?)
	`, run.File, run.TagHelpers, run.Recovered)
	if err != nil {
		return 0, fmt.Errorf("recording run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("recording run: %w", err)
	}

	for _, d := range run.Diagnostics {
		_, err := tx.Exec(`
			INSERT INTO diagnostics (run_id, class, code, message, line, col, pos)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, string(d.Class), d.Code, d.Message, d.Line, d.Column, d.Offset)
		if err != nil {
			return 0, fmt.Errorf("recording diagnostic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

// Runs returns the most recent runs, newest first, optionally filtered by
// file. Each run carries its diagnostics.
func (h *History) Runs(file string, limit int) ([]Run, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error
	if file == "" {
		rows, err = h.db.Query(`
			SELECT id, file, checked_at, tag_helpers, recovered
			FROM runs
			ORDER BY id DESC
			LIMIT ?
		`, limit)
	} else {
		rows, err = h.db.Query(`
			SELECT id, file, checked_at, tag_helpers, recovered
			FROM runs
			WHERE file = ?
			ORDER BY id DESC
			LIMIT ?
		`, file, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}

	var runs []Run
	for rows.Next() {
		var r Run
		var ts string
		if err := rows.Scan(&r.ID, &r.File, &ts, &r.TagHelpers, &r.Recovered); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.CheckedAt = parseTimestamp(ts)
		runs = append(runs, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		diags, err := h.diagnostics(runs[i].ID, runs[i].File)
		if err != nil {
			return nil, err
		}
		runs[i].Diagnostics = diags
	}
	return runs, nil
}

// Latest returns the most recent run for file, or nil if it was never
// checked.
func (h *History) Latest(file string) (*Run, error) {
	runs, err := h.Runs(file, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return &runs[0], nil
}

func (h *History) diagnostics(runID int64, file string) ([]*errors.Diagnostic, error) {
	rows, err := h.db.Query(`
		SELECT class, code, message, line, col, pos
		FROM diagnostics
		WHERE run_id = ?
		ORDER BY pos ASC, id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying diagnostics: %w", err)
	}
	defer rows.Close()

	var diags []*errors.Diagnostic
	for rows.Next() {
		d := &errors.Diagnostic{File: file}
		var class string
		if err := rows.Scan(&class, &d.Code, &d.Message, &d.Line, &d.Column, &d.Offset); err != nil {
			return nil, fmt.Errorf("scanning diagnostic: %w", err)
		}
		d.Class = errors.ErrorClass(class)
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

// Clear removes runs, optionally filtered by file.
func (h *History) Clear(file string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if file == "" {
		_, err = h.db.Exec("DELETE FROM runs")
	} else {
		_, err = h.db.Exec("DELETE FROM runs WHERE file = ?", file)
	}
	return err
}

// Count returns the number of runs, optionally filtered by file.
func (h *History) Count(file string) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var count int
	var err error
	if file == "" {
		err = h.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	} else {
		err = h.db.QueryRow("SELECT COUNT(*) FROM runs WHERE file = ?", file).Scan(&count)
	}
	return count, err
}

// maybeAutoTruncate deletes the oldest runs once the database outgrows
// maxSize. Must be called with lock held.
func (h *History) maybeAutoTruncate() error {
	info, err := os.Stat(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < h.maxSize {
		return nil
	}

	var total int
	if err := h.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&total); err != nil {
		return err
	}
	if total == 0 {
		return nil
	}

	deleteCount := (total * h.truncatePct) / 100
	if deleteCount == 0 {
		deleteCount = 1
	}

	_, err = h.db.Exec(`
		DELETE FROM runs WHERE id IN (
			SELECT id FROM runs ORDER BY id ASC LIMIT ?
		)
	`, deleteCount)
	if err != nil {
		return fmt.Errorf("truncating history: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (h *History) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.db.Close()
}

// Path returns the path to the database file.
func (h *History) Path() string {
	return h.path
}

// parseTimestamp parses the formats SQLite uses for DATETIME columns.
func parseTimestamp(ts string) time.Time {
	for _, layout := range []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		time.RFC3339,
	} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t
		}
	}
	return time.Time{}
}
