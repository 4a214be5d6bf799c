// Package journal keeps a local SQLite record of URL update runs so a batch
// that Zotero refused can be found again after the run has finished.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Journal wraps a SQLite database connection.
type Journal struct {
	db *sql.DB
}

// RunInfo describes one recorded run.
type RunInfo struct {
	ID         string     `json:"id"`
	LibraryID  string     `json:"library_id"`
	ItemType   string     `json:"item_type"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Total      int        `json:"total"`
}

// Batch is the outcome of one submitted page.
type Batch struct {
	Page  int       `json:"page"`
	Items int       `json:"items"`
	OK    bool      `json:"ok"`
	At    time.Time `json:"at"`
}

// Open opens or creates a journal at the given path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			library_id TEXT NOT NULL,
			item_type TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER,
			total INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS batches (
			run_id TEXT NOT NULL REFERENCES runs(id),
			page INTEGER NOT NULL,
			items INTEGER NOT NULL,
			ok INTEGER NOT NULL,
			recorded_at INTEGER NOT NULL,
			PRIMARY KEY (run_id, page)
		);
	`

	_, err := db.Exec(schema)
	return err
}

// Run records the batches of one updater run. It satisfies updater.Recorder.
type Run struct {
	j  *Journal
	ID string
}

// StartRun inserts a new run and returns a handle for recording its batches.
func (j *Journal) StartRun(ctx context.Context, libraryID, itemType string) (*Run, error) {
	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, library_id, item_type, started_at) VALUES (?, ?, ?, ?)`,
		id, libraryID, itemType, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	return &Run{j: j, ID: id}, nil
}

// RecordBatch stores the outcome of one page.
func (r *Run) RecordBatch(ctx context.Context, page, items int, ok bool) error {
	_, err := r.j.db.ExecContext(ctx,
		`INSERT INTO batches (run_id, page, items, ok, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, page, items, boolToInt(ok), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("inserting batch: %w", err)
	}
	return nil
}

// Finish marks the run complete with its final item total.
func (r *Run) Finish(ctx context.Context, total int) error {
	_, err := r.j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total = ? WHERE id = ?`,
		time.Now().Unix(), total, r.ID)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// Batches returns the batches of a run in page order.
func (j *Journal) Batches(ctx context.Context, runID string) ([]Batch, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT page, items, ok, recorded_at FROM batches WHERE run_id = ? ORDER BY page`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var b Batch
		var ok int
		var at int64
		if err := rows.Scan(&b.Page, &b.Items, &ok, &at); err != nil {
			return nil, fmt.Errorf("scanning batch: %w", err)
		}
		b.OK = ok != 0
		b.At = time.Unix(at, 0)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// FailedBatches returns the rejected batches of a run.
func (j *Journal) FailedBatches(ctx context.Context, runID string) ([]Batch, error) {
	all, err := j.Batches(ctx, runID)
	if err != nil {
		return nil, err
	}
	var failed []Batch
	for _, b := range all {
		if !b.OK {
			failed = append(failed, b)
		}
	}
	return failed, nil
}

// GetRun returns a run by ID, or nil if it does not exist.
func (j *Journal) GetRun(ctx context.Context, runID string) (*RunInfo, error) {
	var info RunInfo
	var started int64
	var finished sql.NullInt64
	err := j.db.QueryRowContext(ctx,
		`SELECT id, library_id, item_type, started_at, finished_at, total FROM runs WHERE id = ?`, runID).
		Scan(&info.ID, &info.LibraryID, &info.ItemType, &started, &finished, &info.Total)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	info.StartedAt = time.Unix(started, 0)
	if finished.Valid {
		t := time.Unix(finished.Int64, 0)
		info.FinishedAt = &t
	}
	return &info, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
