package store

import (
	"context"
	"errors"
	"strings"

	"github.com/dunamismax/pixelgen/internal/domain"
)

var ErrJobNotFound = errors.New("job not found")

type JobStore interface {
	Create(ctx context.Context, job domain.AnimationJob) error
	Get(ctx context.Context, id string) (domain.AnimationJob, bool, error)
	UpdateStatus(ctx context.Context, id, status string) (domain.AnimationJob, error)
	// Complete marks the job succeeded and records its output keys.
	Complete(ctx context.Context, id string, outputs []string) (domain.AnimationJob, error)
	// Fail marks the job failed and records the reason.
	Fail(ctx context.Context, id, reason string) (domain.AnimationJob, error)
}

// Open returns a Postgres-backed store when dsn is set and an in-memory one
// otherwise. The returned close function is never nil.
func Open(ctx context.Context, dsn string) (JobStore, func() error, error) {
	if strings.TrimSpace(dsn) == "" {
		return NewMemoryJobStore(), func() error { return nil }, nil
	}
	pg, err := NewPostgresJobStore(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}
