package jobrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/digestbot/internal/domain/bot"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id              UUID PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	source          TEXT NOT NULL,
	flow            TEXT NOT NULL,
	status          TEXT NOT NULL,
	error_code      TEXT NOT NULL DEFAULT '',
	input_chars     INTEGER NOT NULL DEFAULT 0,
	output_chars    INTEGER NOT NULL DEFAULT 0,
	model_calls     INTEGER NOT NULL DEFAULT 0,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS jobs_started_at_idx ON jobs (started_at DESC);
`

// PostgresRepository implements bot.JobRepository using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the jobs table when missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate jobs table: %w", err)
	}
	return nil
}

// Save implements bot.JobRepository.
func (r *PostgresRepository) Save(ctx context.Context, job bot.Job) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO jobs (id, conversation_id, source, flow, status, error_code,
			input_chars, output_chars, model_calls, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			error_code = EXCLUDED.error_code,
			output_chars = EXCLUDED.output_chars,
			model_calls = EXCLUDED.model_calls,
			finished_at = EXCLUDED.finished_at
	`, job.ID, job.ConversationID, string(job.Source), job.Flow, string(job.Status), job.ErrorCode,
		job.InputChars, job.OutputChars, job.ModelCalls, job.StartedAt, job.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// ListRecent implements bot.JobRepository.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]bot.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, source, flow, status, error_code,
			input_chars, output_chars, model_calls, started_at, finished_at
		FROM jobs
		ORDER BY started_at DESC
		LIMIT $1
	`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []bot.Job
	for rows.Next() {
		job, err := scanPostgresJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanPostgresJob(rows pgx.Rows) (bot.Job, error) {
	var (
		job            bot.Job
		source, status string
	)
	if err := rows.Scan(&job.ID, &job.ConversationID, &source, &job.Flow, &status, &job.ErrorCode,
		&job.InputChars, &job.OutputChars, &job.ModelCalls, &job.StartedAt, &job.FinishedAt); err != nil {
		return bot.Job{}, fmt.Errorf("scan job: %w", err)
	}
	job.Source = bot.Source(source)
	job.Status = bot.JobStatus(status)
	return job, nil
}

var _ bot.JobRepository = (*PostgresRepository)(nil)
