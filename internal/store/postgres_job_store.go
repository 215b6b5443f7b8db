package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dunamismax/pixelgen/internal/domain"
	_ "github.com/lib/pq"
)

const animationSchemaSQL = `
CREATE TABLE IF NOT EXISTS animation_jobs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	prompt TEXT NOT NULL,
	prefix TEXT NOT NULL DEFAULT '',
	max_frames INTEGER NOT NULL,
	mode TEXT NOT NULL,
	interpolation TEXT NOT NULL,
	border_mode TEXT NOT NULL,
	curves JSONB NOT NULL,
	webhook_url TEXT NOT NULL DEFAULT '',
	source_key TEXT NOT NULL,
	outputs JSONB NOT NULL DEFAULT '[]',
	error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

const selectAnimationSQL = `SELECT id, status, prompt, prefix, max_frames, mode, interpolation, border_mode,
	curves, webhook_url, source_key, outputs, error, created_at, updated_at
 FROM animation_jobs
 WHERE id = $1`

type PostgresJobStore struct {
	db *sql.DB
}

func NewPostgresJobStore(ctx context.Context, dsn string) (*PostgresJobStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresJobStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresJobStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, animationSchemaSQL); err != nil {
		return fmt.Errorf("ensure animation_jobs schema: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) Close() error {
	return s.db.Close()
}

func (s *PostgresJobStore) Create(ctx context.Context, job domain.AnimationJob) error {
	curvesJSON, err := json.Marshal(job.Curves)
	if err != nil {
		return fmt.Errorf("marshal job curves: %w", err)
	}
	outputsJSON, err := marshalOutputs(job.Outputs)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO animation_jobs (id, status, prompt, prefix, max_frames, mode, interpolation, border_mode,
			curves, webhook_url, source_key, outputs, error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		job.ID,
		job.Status,
		job.Prompt,
		job.Prefix,
		job.MaxFrames,
		job.Mode,
		job.Interpolation,
		job.BorderMode,
		curvesJSON,
		job.WebhookURL,
		job.SourceKey,
		outputsJSON,
		job.Error,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert animation job: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) Get(ctx context.Context, id string) (domain.AnimationJob, bool, error) {
	var (
		job         domain.AnimationJob
		curvesJSON  []byte
		outputsJSON []byte
	)
	err := s.db.QueryRowContext(ctx, selectAnimationSQL, id).Scan(
		&job.ID,
		&job.Status,
		&job.Prompt,
		&job.Prefix,
		&job.MaxFrames,
		&job.Mode,
		&job.Interpolation,
		&job.BorderMode,
		&curvesJSON,
		&job.WebhookURL,
		&job.SourceKey,
		&outputsJSON,
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AnimationJob{}, false, nil
	}
	if err != nil {
		return domain.AnimationJob{}, false, fmt.Errorf("query animation job: %w", err)
	}

	if err := json.Unmarshal(curvesJSON, &job.Curves); err != nil {
		return domain.AnimationJob{}, false, fmt.Errorf("unmarshal job curves: %w", err)
	}
	if err := json.Unmarshal(outputsJSON, &job.Outputs); err != nil {
		return domain.AnimationJob{}, false, fmt.Errorf("unmarshal job outputs: %w", err)
	}
	return job, true, nil
}

func (s *PostgresJobStore) UpdateStatus(ctx context.Context, id, status string) (domain.AnimationJob, error) {
	return s.exec(ctx, id, "update job status",
		`UPDATE animation_jobs SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id)
}

func (s *PostgresJobStore) Complete(ctx context.Context, id string, outputs []string) (domain.AnimationJob, error) {
	outputsJSON, err := marshalOutputs(outputs)
	if err != nil {
		return domain.AnimationJob{}, err
	}
	return s.exec(ctx, id, "complete job",
		`UPDATE animation_jobs SET status = $1, outputs = $2, error = '', updated_at = $3 WHERE id = $4`,
		domain.JobStatusSucceeded, outputsJSON, time.Now().UTC(), id)
}

func (s *PostgresJobStore) Fail(ctx context.Context, id, reason string) (domain.AnimationJob, error) {
	return s.exec(ctx, id, "fail job",
		`UPDATE animation_jobs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		domain.JobStatusFailed, reason, time.Now().UTC(), id)
}

func (s *PostgresJobStore) exec(ctx context.Context, id, what, query string, args ...any) (domain.AnimationJob, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.AnimationJob{}, fmt.Errorf("%s: %w", what, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.AnimationJob{}, ErrJobNotFound
	}

	job, ok, err := s.Get(ctx, id)
	if err != nil {
		return domain.AnimationJob{}, err
	}
	if !ok {
		return domain.AnimationJob{}, ErrJobNotFound
	}
	return job, nil
}

func marshalOutputs(outputs []string) ([]byte, error) {
	if outputs == nil {
		outputs = []string{}
	}
	data, err := json.Marshal(outputs)
	if err != nil {
		return nil, fmt.Errorf("marshal job outputs: %w", err)
	}
	return data, nil
}
