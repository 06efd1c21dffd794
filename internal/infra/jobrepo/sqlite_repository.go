package jobrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yanqian/digestbot/internal/domain/bot"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id              TEXT    PRIMARY KEY,
	conversation_id TEXT    NOT NULL,
	source          TEXT    NOT NULL,
	flow            TEXT    NOT NULL,
	status          TEXT    NOT NULL,
	error_code      TEXT    NOT NULL DEFAULT '',
	input_chars     INTEGER NOT NULL DEFAULT 0,
	output_chars    INTEGER NOT NULL DEFAULT 0,
	model_calls     INTEGER NOT NULL DEFAULT 0,
	started_at      TEXT    NOT NULL,
	finished_at     TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS jobs_started_at_idx ON jobs (started_at);
`

// SQLiteRepository implements bot.JobRepository on a local SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite is single-writer; one shared connection serializes callers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate jobs table: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Save implements bot.JobRepository.
func (r *SQLiteRepository) Save(ctx context.Context, job bot.Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, conversation_id, source, flow, status, error_code,
			input_chars, output_chars, model_calls, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			error_code = excluded.error_code,
			output_chars = excluded.output_chars,
			model_calls = excluded.model_calls,
			finished_at = excluded.finished_at
	`, job.ID.String(), job.ConversationID, string(job.Source), job.Flow, string(job.Status), job.ErrorCode,
		job.InputChars, job.OutputChars, job.ModelCalls, formatTime(job.StartedAt), formatTime(job.FinishedAt))
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// ListRecent implements bot.JobRepository.
func (r *SQLiteRepository) ListRecent(ctx context.Context, limit int) ([]bot.Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, source, flow, status, error_code,
			input_chars, output_chars, model_calls, started_at, finished_at
		FROM jobs
		ORDER BY started_at DESC
		LIMIT ?
	`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []bot.Job
	for rows.Next() {
		var (
			job                   bot.Job
			id, source, status    string
			startedAt, finishedAt string
		)
		if err := rows.Scan(&id, &job.ConversationID, &source, &job.Flow, &status, &job.ErrorCode,
			&job.InputChars, &job.OutputChars, &job.ModelCalls, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if job.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse job id %q: %w", id, err)
		}
		if job.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if job.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		job.Source = bot.Source(source)
		job.Status = bot.JobStatus(status)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// formatTime keeps a fixed-width UTC layout so text ordering matches time ordering.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

var _ bot.JobRepository = (*SQLiteRepository)(nil)
