package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store with the same transition semantics as the
// Postgres implementation. Intended for tests.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job
}

// NewMemoryStore creates an empty in-memory jobs store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[uuid.UUID]*Job)}
}

// Create persists a new pending job and returns a copy of it.
func (s *MemoryStore) Create(_ context.Context, organizationID, userID uuid.UUID, jobType string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &Job{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		UserID:         userID,
		JobType:        jobType,
		Status:         StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	s.jobs[job.ID] = job

	copied := *job
	return &copied, nil
}

// Start moves a pending job to running.
func (s *MemoryStore) Start(_ context.Context, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}
	if job.Status != StatusPending {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	job.Status = StatusRunning
	job.StartedAt = &now
	return nil
}

// Complete moves a running job to completed.
func (s *MemoryStore) Complete(_ context.Context, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return ErrJobNotFound
	}
	if job.Status != StatusRunning {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	job.Status = StatusCompleted
	job.CompletedAt = &now
	return nil
}

// Get returns a copy of the job by id.
func (s *MemoryStore) Get(_ context.Context, jobID uuid.UUID) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}
