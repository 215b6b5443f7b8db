package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dunamismax/pixelgen/internal/domain"
)

type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]domain.AnimationJob
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[string]domain.AnimationJob),
	}
}

func (s *MemoryJobStore) Create(_ context.Context, job domain.AnimationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job.Outputs = slices.Clone(job.Outputs)
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (domain.AnimationJob, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	job.Outputs = slices.Clone(job.Outputs)
	return job, ok, nil
}

func (s *MemoryJobStore) UpdateStatus(_ context.Context, id, status string) (domain.AnimationJob, error) {
	return s.update(id, func(job *domain.AnimationJob) {
		job.Status = status
	})
}

func (s *MemoryJobStore) Complete(_ context.Context, id string, outputs []string) (domain.AnimationJob, error) {
	return s.update(id, func(job *domain.AnimationJob) {
		job.Status = domain.JobStatusSucceeded
		job.Outputs = slices.Clone(outputs)
		job.Error = ""
	})
}

func (s *MemoryJobStore) Fail(_ context.Context, id, reason string) (domain.AnimationJob, error) {
	return s.update(id, func(job *domain.AnimationJob) {
		job.Status = domain.JobStatusFailed
		job.Error = reason
	})
}

func (s *MemoryJobStore) update(id string, fn func(*domain.AnimationJob)) (domain.AnimationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.AnimationJob{}, ErrJobNotFound
	}

	fn(&job)
	job.UpdatedAt = time.Now().UTC()
	s.jobs[id] = job

	job.Outputs = slices.Clone(job.Outputs)
	return job, nil
}
