// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive records finished pipeline runs in a SQLite database so
// their documents and stage outputs can be listed, searched and exported
// later. Stage outputs are indexed with FTS5 when the driver provides it.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/article-engine/pkg/types"
)

// ErrNotFound is returned when no run matches an ID.
var ErrNotFound = errors.New("run not found")

// Store manages the run archive database.
type Store struct {
	db  *sql.DB
	fts bool
}

// Open opens or creates the archive at path, creating parent directories
// and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			item_count INTEGER NOT NULL,
			state TEXT NOT NULL,
			failure_kind TEXT,
			failure_stage TEXT,
			failure_error TEXT,
			skipped TEXT,
			document TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			stage TEXT NOT NULL,
			attempts INTEGER NOT NULL,
			text TEXT NOT NULL,
			UNIQUE(run_id, stage)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_run ON entries(run_id, seq)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='entries_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		s.fts = true
		return nil
	}

	if _, err := s.db.Exec(`CREATE VIRTUAL TABLE entries_fts USING fts5(text, content=entries, content_rowid=rowid)`); err != nil {
		// Drivers built without FTS5 fall back to substring search.
		slog.Debug("full-text index unavailable", slog.Any("error", err))
		return nil
	}
	triggers := []string{
		`CREATE TRIGGER entries_ai AFTER INSERT ON entries BEGIN
			INSERT INTO entries_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
		`CREATE TRIGGER entries_ad AFTER DELETE ON entries BEGIN
			INSERT INTO entries_fts(entries_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		END`,
		`CREATE TRIGGER entries_au AFTER UPDATE ON entries BEGIN
			INSERT INTO entries_fts(entries_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			INSERT INTO entries_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
	}
	for _, stmt := range triggers {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	s.fts = true
	return nil
}

// SaveRun records rec and its entries. Saving a run ID again replaces the
// earlier record.
func (s *Store) SaveRun(ctx context.Context, rec types.RunRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("run record has no ID")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE run_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("deleting old entries: %w", err)
	}

	skippedJSON, _ := json.Marshal(rec.Skipped)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, topic, item_count, state, failure_kind, failure_stage, failure_error, skipped, document, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			topic=excluded.topic, item_count=excluded.item_count, state=excluded.state,
			failure_kind=excluded.failure_kind, failure_stage=excluded.failure_stage,
			failure_error=excluded.failure_error, skipped=excluded.skipped,
			document=excluded.document, started_at=excluded.started_at,
			finished_at=excluded.finished_at`,
		rec.ID, rec.Topic, rec.ItemCount, rec.State,
		rec.FailureKind, rec.FailureStage, rec.FailureError, string(skippedJSON),
		rec.Document, formatTime(rec.StartedAt), formatTime(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO entries (run_id, seq, stage, attempts, text) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range rec.Entries {
		if _, err := stmt.ExecContext(ctx, rec.ID, e.Seq, e.Stage, e.Attempts, e.Text); err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.Stage, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns up to limit runs, newest first, without their entries.
// A limit of zero or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]types.RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []types.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose ID is id or starts with id, with its
// entries in insertion order. A prefix matching several runs is an error.
func (s *Store) GetRun(ctx context.Context, id string) (types.RunRecord, error) {
	if id == "" {
		return types.RunRecord{}, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR substr(id, 1, length(?)) = ? LIMIT 2`, id, id, id)
	if err != nil {
		return types.RunRecord{}, fmt.Errorf("querying run: %w", err)
	}
	var matches []types.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return types.RunRecord{}, err
		}
		matches = append(matches, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return types.RunRecord{}, err
	}

	switch len(matches) {
	case 0:
		return types.RunRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
	default:
		exact := false
		for _, m := range matches {
			if m.ID == id {
				matches = []types.RunRecord{m}
				exact = true
			}
		}
		if !exact {
			return types.RunRecord{}, fmt.Errorf("run ID prefix %q is ambiguous", id)
		}
	}

	rec := matches[0]
	rec.Entries, err = s.entries(ctx, rec.ID)
	if err != nil {
		return types.RunRecord{}, err
	}
	return rec, nil
}

func (s *Store) entries(ctx context.Context, runID string) ([]types.EntryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, stage, attempts, text FROM entries WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var out []types.EntryRecord
	for rows.Next() {
		var e types.EntryRecord
		if err := rows.Scan(&e.Seq, &e.Stage, &e.Attempts, &e.Text); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const runColumns = `id, topic, item_count, state, failure_kind, failure_stage, failure_error, skipped, document, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (types.RunRecord, error) {
	var (
		rec                                types.RunRecord
		kind, stage, failErr, skipped, doc sql.NullString
		started, finished                  string
	)
	if err := row.Scan(&rec.ID, &rec.Topic, &rec.ItemCount, &rec.State,
		&kind, &stage, &failErr, &skipped, &doc, &started, &finished); err != nil {
		return rec, fmt.Errorf("scanning run: %w", err)
	}
	rec.FailureKind = kind.String
	rec.FailureStage = stage.String
	rec.FailureError = failErr.String
	rec.Document = doc.String
	if skipped.Valid && skipped.String != "" {
		json.Unmarshal([]byte(skipped.String), &rec.Skipped)
	}
	rec.StartedAt = parseTime(started)
	rec.FinishedAt = parseTime(finished)
	return rec, nil
}

// timeLayout keeps every fraction digit so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
