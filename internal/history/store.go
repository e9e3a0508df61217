// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records conversion runs in a local SQLite database so
// past batches can be listed and exported.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/imgconv/internal/convert"
	"github.com/pdiddy/imgconv/pkg/types"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

const (
	defaultListLimit = 20

	// timeLayout keeps fractional seconds fixed-width so stored timestamps
	// sort lexically in time order.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Run is one recorded batch.
type Run struct {
	ID           string       `json:"id" yaml:"id"`
	StartedAt    time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time    `json:"finished_at" yaml:"finished_at"`
	InputDir     string       `json:"input_dir" yaml:"input_dir"`
	OutputDir    string       `json:"output_dir" yaml:"output_dir"`
	InputFormat  string       `json:"input_format" yaml:"input_format"`
	OutputFormat string       `json:"output_format" yaml:"output_format"`
	Attempted    int          `json:"attempted" yaml:"attempted"`
	Succeeded    int          `json:"succeeded" yaml:"succeeded"`
	Failed       int          `json:"failed" yaml:"failed"`
	Files        []FileRecord `json:"files,omitempty" yaml:"files,omitempty"`
}

// FileRecord is the stored outcome of one file in a run.
type FileRecord struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
	OK     bool   `json:"ok" yaml:"ok"`
	Stage  string `json:"stage,omitempty" yaml:"stage,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
	Width  int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height int    `json:"height,omitempty" yaml:"height,omitempty"`
	Mode   string `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// NewRun builds the record of a finished batch under a fresh run ID.
func NewRun(cfg types.ConversionConfig, started, finished time.Time, res convert.BatchResult) Run {
	run := Run{
		ID:           uuid.NewString(),
		StartedAt:    started.UTC(),
		FinishedAt:   finished.UTC(),
		InputDir:     cfg.InputDir,
		OutputDir:    cfg.OutputDir,
		InputFormat:  cfg.From.String(),
		OutputFormat: cfg.To.String(),
		Attempted:    res.Attempted,
		Succeeded:    res.Succeeded,
		Failed:       res.Failed,
	}
	for _, r := range res.Results {
		rec := FileRecord{Input: r.Job.Input, Output: r.Job.Output, OK: r.OK()}
		if r.OK() {
			rec.Width, rec.Height, rec.Mode = r.Width, r.Height, r.Mode.String()
		} else {
			rec.Error = r.Err.Error()
			var fe *convert.FileError
			if errors.As(r.Err, &fe) {
				rec.Stage = fe.Stage
				rec.Error = fe.Err.Error()
			}
		}
		run.Files = append(run.Files, rec)
	}
	return run
}

// Store manages the run history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path and its schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
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
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			input_dir TEXT,
			output_dir TEXT,
			input_format TEXT,
			output_format TEXT,
			attempted INTEGER,
			succeeded INTEGER,
			failed INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			input TEXT NOT NULL,
			output TEXT,
			ok INTEGER NOT NULL,
			stage TEXT,
			error TEXT,
			width INTEGER,
			height INTEGER,
			mode TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_files_run_id ON files(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a run and its file outcomes in one transaction.
func (s *Store) Record(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, input_dir, output_dir, input_format, output_format, attempted, succeeded, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UTC().Format(timeLayout), run.FinishedAt.UTC().Format(timeLayout),
		run.InputDir, run.OutputDir, run.InputFormat, run.OutputFormat,
		run.Attempted, run.Succeeded, run.Failed,
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO files (run_id, input, output, ok, stage, error, width, height, mode)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range run.Files {
		_, err := stmt.ExecContext(ctx,
			run.ID, f.Input, f.Output, f.OK, f.Stage, f.Error, f.Width, f.Height, f.Mode,
		)
		if err != nil {
			return fmt.Errorf("inserting file %s: %w", f.Input, err)
		}
	}

	return tx.Commit()
}

// List returns the most recent runs, newest first, without file records.
// A limit of zero or less uses the default of 20.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, input_dir, output_dir, input_format, output_format, attempted, succeeded, failed
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns one run with its file records.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, input_dir, output_dir, input_format, output_format, attempted, succeeded, failed
		 FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	files, err := s.files(ctx, id)
	if err != nil {
		return Run{}, err
	}
	run.Files = files
	return run, nil
}

func (s *Store) files(ctx context.Context, runID string) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT input, output, ok, stage, error, width, height, mode
		 FROM files WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying files of run %s: %w", runID, err)
	}
	defer rows.Close()

	var files []FileRecord
	for rows.Next() {
		var f FileRecord
		if err := rows.Scan(&f.Input, &f.Output, &f.OK, &f.Stage, &f.Error, &f.Width, &f.Height, &f.Mode); err != nil {
			return nil, fmt.Errorf("scanning file record: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var started, finished string
	err := sc.Scan(&run.ID, &started, &finished, &run.InputDir, &run.OutputDir,
		&run.InputFormat, &run.OutputFormat, &run.Attempted, &run.Succeeded, &run.Failed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("parsing started_at of run %s: %w", run.ID, err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("parsing finished_at of run %s: %w", run.ID, err)
	}
	return run, nil
}
