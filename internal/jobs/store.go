package jobs

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"coursegen/internal/course"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current journal schema version. Bump this when the
// schema changes; older journals must be removed.
const schemaVersion = 1

// ErrSchemaMismatch indicates the journal was written by another schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store is the SQLite job journal. It implements Recorder.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore initializes or connects to the journal at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
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
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: journal has version %d, expected %d (delete %s)",
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

// Record upserts a job snapshot.
func (s *Store) Record(ctx context.Context, job Job) error {
	var lessonErrors any
	if len(job.LessonErrors) > 0 {
		data, err := json.Marshal(job.LessonErrors)
		if err != nil {
			return fmt.Errorf("marshal lesson errors: %w", err)
		}
		lessonErrors = string(data)
	}
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO jobs (
                id, status, progress, course_ref, error_message, lesson_errors_json,
                created_at, updated_at, started_at, completed_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO UPDATE SET
                status = excluded.status,
                progress = excluded.progress,
                course_ref = excluded.course_ref,
                error_message = excluded.error_message,
                lesson_errors_json = excluded.lesson_errors_json,
                updated_at = excluded.updated_at,
                started_at = excluded.started_at,
                completed_at = excluded.completed_at`,
			job.ID,
			string(job.Status),
			job.Progress,
			nullableString(job.CourseRef),
			nullableString(job.Error),
			lessonErrors,
			formatTime(job.CreatedAt),
			formatTime(job.UpdatedAt),
			formatTimePtr(job.StartedAt),
			formatTimePtr(job.CompletedAt),
		)
		if err != nil {
			return fmt.Errorf("record job: %w", err)
		}
		return nil
	})
}

// SaveCourse attaches the finished course and its source name to a job row.
func (s *Store) SaveCourse(ctx context.Context, jobID, sourceName string, c *course.Course) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal course: %w", err)
	}
	return retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"UPDATE jobs SET course_json = ?, source_name = ? WHERE id = ?",
			string(data), nullableString(sourceName), jobID,
		)
		if err != nil {
			return fmt.Errorf("save course: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return &NotFoundError{ID: jobID}
		}
		return nil
	})
}

// Entry is a journal row.
type Entry struct {
	Job
	SourceName string
}

const selectColumns = `id, status, progress, course_ref, error_message, lesson_errors_json,
    source_name, created_at, updated_at, started_at, completed_at`

// Get returns a journaled job.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM jobs WHERE id = ?", id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, &NotFoundError{ID: id}
	}
	return entry, err
}

// List returns up to limit journaled jobs, newest first. A non-positive limit
// returns every row.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := "SELECT " + selectColumns + " FROM jobs ORDER BY created_at DESC, id"
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

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Course returns the course stored for a completed job.
func (s *Store) Course(ctx context.Context, jobID string) (*course.Course, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT course_json FROM jobs WHERE id = ?", jobID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !raw.Valid) {
		return nil, &NotFoundError{ID: jobID}
	}
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	var c course.Course
	if err := json.Unmarshal([]byte(raw.String), &c); err != nil {
		return nil, fmt.Errorf("decode course: %w", err)
	}
	return &c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry                                   Entry
		status                                  string
		courseRef, errMsg, lessonErrors, source sql.NullString
		created, updated                        string
		started, completed                      sql.NullString
	)
	if err := row.Scan(&entry.ID, &status, &entry.Progress, &courseRef, &errMsg, &lessonErrors,
		&source, &created, &updated, &started, &completed); err != nil {
		return Entry{}, err
	}
	parsed, ok := ParseStatus(status)
	if !ok {
		return Entry{}, fmt.Errorf("job %s: unknown status %q", entry.ID, status)
	}
	entry.Status = parsed
	entry.CourseRef = courseRef.String
	entry.Error = errMsg.String
	entry.SourceName = source.String
	if lessonErrors.Valid && lessonErrors.String != "" {
		if err := json.Unmarshal([]byte(lessonErrors.String), &entry.LessonErrors); err != nil {
			return Entry{}, fmt.Errorf("job %s: decode lesson errors: %w", entry.ID, err)
		}
	}
	entry.CreatedAt = parseTime(created)
	entry.UpdatedAt = parseTime(updated)
	entry.StartedAt = parseTimePtr(started)
	entry.CompletedAt = parseTimePtr(completed)
	return entry, nil
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

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(value sql.NullString) *time.Time {
	if !value.Valid || value.String == "" {
		return nil
	}
	t := parseTime(value.String)
	return &t
}
