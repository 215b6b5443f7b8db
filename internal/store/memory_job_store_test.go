package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dunamismax/pixelgen/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedJob(t *testing.T, s JobStore) domain.AnimationJob {
	t.Helper()
	now := time.Now().UTC()
	job := domain.AnimationJob{
		ID:        "job-1",
		Status:    domain.JobStatusCreated,
		Prompt:    "a lighthouse at dusk",
		MaxFrames: 12,
		Mode:      domain.Mode2D,
		Curves:    domain.DefaultCurves,
		SourceKey: "uploads/job-1/source",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Create(context.Background(), job))
	return job
}

func TestMemoryJobStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()
	seedJob(t, s)

	job, err := s.UpdateStatus(ctx, "job-1", domain.JobStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, job.Status)

	outputs := []string{"outputs/job-1/a_1.png", "outputs/job-1/a_2.png"}
	job, err = s.Complete(ctx, "job-1", outputs)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSucceeded, job.Status)

	outputs[0] = "mutated"
	got, ok, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "outputs/job-1/a_1.png", got.Outputs[0])
	assert.Equal(t, domain.DefaultCurves, got.Curves)
}

func TestMemoryJobStoreFail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()
	seedJob(t, s)

	job, err := s.Fail(ctx, "job-1", "engine unavailable")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Equal(t, "engine unavailable", job.Error)
}

func TestMemoryJobStoreMissingJob(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryJobStore()

	_, ok, err := s.Get(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.UpdateStatus(ctx, "nope", domain.JobStatusQueued)
	assert.True(t, errors.Is(err, ErrJobNotFound))
	_, err = s.Complete(ctx, "nope", nil)
	assert.True(t, errors.Is(err, ErrJobNotFound))
}

func TestOpenWithoutDSNUsesMemory(t *testing.T) {
	s, closeFn, err := Open(context.Background(), "  ")
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	assert.IsType(t, &MemoryJobStore{}, s)
	assert.NoError(t, closeFn())
}
