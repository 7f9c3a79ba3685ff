package jobs

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"glossa/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; a mismatched database must be cleared or deleted.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// ErrNotFound indicates the requested job does not exist.
var ErrNotFound = errors.New("job not found")

// ErrInvalidTransition indicates a status update that the job lifecycle does
// not allow.
var ErrInvalidTransition = errors.New("invalid status transition")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store manages translation history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'glossa jobs clear --all' or delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Insert records a freshly accepted job in the submitted state.
func (s *Store) Insert(ctx context.Context, job *Job) error {
	if job == nil || job.ID == "" {
		return errors.New("job id is required")
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	_, err := s.execWithRetry(ensureContext(ctx),
		`INSERT INTO jobs (
            id, correlation_id, source_path, source_filename, service, threads,
            lang_in, lang_out, status, progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.CorrelationID,
		job.SourcePath,
		job.SourceFilename,
		job.Service,
		job.Threads,
		job.LangIn,
		job.LangOut,
		StatusSubmitted,
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	job.Status = StatusSubmitted
	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}

// UpdateProgress records a progress event, moving the job to streaming on the
// first one.
func (s *Store) UpdateProgress(ctx context.Context, id string, pct float64, stage, message string) error {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, progress_percent = ?, progress_stage = ?, progress_message = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusStreaming, pct, nullableString(stage), nullableString(message), timestamp,
		id, StatusSubmitted, StatusStreaming,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return s.requireTransition(ctx, res, id, StatusStreaming)
}

// Complete marks the job finished and records the saved output path.
func (s *Store) Complete(ctx context.Context, id, outputFile string) error {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, progress_percent = 100, output_file = ?, error_message = NULL,
            updated_at = ?, completed_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusCompleted, nullableString(outputFile), timestamp, timestamp,
		id, StatusSubmitted, StatusStreaming,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return s.requireTransition(ctx, res, id, StatusCompleted)
}

// Fail marks the job failed with the given message.
func (s *Store) Fail(ctx context.Context, id, message string) error {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?, completed_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusFailed, nullableString(message), timestamp, timestamp,
		id, StatusSubmitted, StatusStreaming,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return s.requireTransition(ctx, res, id, StatusFailed)
}

// requireTransition converts a zero-row update into a not-found or
// invalid-transition error.
func (s *Store) requireTransition(ctx context.Context, res sql.Result, id string, to Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status.CanTransition(to) {
		// The WHERE clause allowed this move, so another writer got there
		// between the update and this read.
		return fmt.Errorf("job %s changed concurrently while moving to %s", id, to)
	}
	return fmt.Errorf("%w: %s -> %s for job %s", ErrInvalidTransition, current.Status, to, id)
}

const jobColumns = "id, correlation_id, source_path, source_filename, service, threads, lang_in, lang_out, status, progress_percent, progress_stage, progress_message, error_message, output_file, created_at, updated_at, completed_at"

// GetByID returns a single job.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs ordered newest first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Job, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + jobColumns + " FROM jobs ORDER BY created_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

// Active returns jobs that have not reached an end state.
func (s *Store) Active(ctx context.Context) ([]*Job, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE status IN (?, ?) ORDER BY created_at ASC",
		StatusSubmitted, StatusStreaming,
	)
	if err != nil {
		return nil, fmt.Errorf("list active jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return out, nil
}

// Clear removes finished jobs from history. With all set, in-flight jobs are
// removed too. It returns the number of deleted rows.
func (s *Store) Clear(ctx context.Context, all bool) (int64, error) {
	ctx = ensureContext(ctx)
	var (
		res sql.Result
		err error
	)
	if all {
		res, err = s.execWithRetry(ctx, "DELETE FROM jobs")
	} else {
		res, err = s.execWithRetry(ctx, "DELETE FROM jobs WHERE status IN (?, ?)", StatusCompleted, StatusFailed)
	}
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return removed, nil
}

// FailActive marks every in-flight job failed, typically at daemon shutdown.
func (s *Store) FailActive(ctx context.Context, message string) (int64, error) {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?, completed_at = ?
         WHERE status IN (?, ?)`,
		StatusFailed, message, timestamp, timestamp,
		StatusSubmitted, StatusStreaming,
	)
	if err != nil {
		return 0, fmt.Errorf("fail active jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// Summarize aggregates job counts per lifecycle state.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM jobs GROUP BY status")
	if err != nil {
		return Summary{}, fmt.Errorf("summarize jobs: %w", err)
	}
	defer rows.Close()

	var summary Summary
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, fmt.Errorf("scan summary: %w", err)
		}
		summary.Total += count
		switch Status(status) {
		case StatusSubmitted:
			summary.Submitted = count
		case StatusStreaming:
			summary.Streaming = count
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, fmt.Errorf("iterate summary: %w", err)
	}
	return summary, nil
}

// Health runs a quick integrity probe against the database.
func (s *Store) Health(ctx context.Context) error {
	ctx = ensureContext(ctx)
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("database file: %w", err)
	}
	var result string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check reported %q", result)
	}
	return nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job             Job
		statusStr       string
		progressStage   sql.NullString
		progressMessage sql.NullString
		errorMessage    sql.NullString
		outputFile      sql.NullString
		createdRaw      string
		updatedRaw      string
		completedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&job.ID,
		&job.CorrelationID,
		&job.SourcePath,
		&job.SourceFilename,
		&job.Service,
		&job.Threads,
		&job.LangIn,
		&job.LangOut,
		&statusStr,
		&job.ProgressPercent,
		&progressStage,
		&progressMessage,
		&errorMessage,
		&outputFile,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	job.Status = Status(statusStr)
	job.ProgressStage = progressStage.String
	job.ProgressMessage = progressMessage.String
	job.ErrorMessage = errorMessage.String
	job.OutputFile = outputFile.String
	job.CreatedAt = parseTimestamp(createdRaw)
	job.UpdatedAt = parseTimestamp(updatedRaw)
	if completedRaw.Valid {
		ts := parseTimestamp(completedRaw.String)
		job.CompletedAt = &ts
	}
	return &job, nil
}

func parseTimestamp(raw string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
