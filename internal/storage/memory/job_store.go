// Package memory provides in-memory store implementations for tests and
// local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/book-release-tracker/internal/tracker"
)

// JobStore is an in-memory tracker.JobStore with the same queue semantics as
// the Postgres implementation.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]*tracker.Job
	ids   tracker.IDGenerator
	clock tracker.Clock
}

// NewJobStore constructs a JobStore.
func NewJobStore(ids tracker.IDGenerator, clock tracker.Clock) *JobStore {
	return &JobStore{
		jobs:  make(map[string]*tracker.Job),
		ids:   ids,
		clock: clock,
	}
}

// Enqueue inserts a QUEUED job unless an identical payload is already
// waiting.
func (s *JobStore) Enqueue(_ context.Context, rawParams string, requester string) (tracker.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if job.Status == tracker.JobStatusQueued && job.RawParams == rawParams {
			return *job, nil
		}
	}

	id, err := s.ids.NewID()
	if err != nil {
		return tracker.Job{}, err
	}
	job := &tracker.Job{
		ID:        id,
		RawParams: rawParams,
		Status:    tracker.JobStatusQueued,
		Requester: requester,
		Created:   s.clock.Now(),
	}
	s.jobs[id] = job
	return *job, nil
}

// FetchNext returns the oldest QUEUED or PROCESSING job, or nil when the
// queue is drained.
func (s *JobStore) FetchNext(_ context.Context) (*tracker.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var next *tracker.Job
	for _, job := range s.jobs {
		if job.Status != tracker.JobStatusQueued && job.Status != tracker.JobStatusProcessing {
			continue
		}
		if next == nil || job.Created.Before(next.Created) {
			next = job
		}
	}
	if next == nil {
		return nil, nil
	}
	copied := *next
	return &copied, nil
}

// ListJobs returns every job, newest first.
func (s *JobStore) ListJobs(_ context.Context) ([]tracker.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]tracker.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Created.After(out[j].Created) })
	return out, nil
}

// MarkProcessing transitions the job to PROCESSING.
func (s *JobStore) MarkProcessing(_ context.Context, job *tracker.Job) error {
	return s.transition(job, func(stored *tracker.Job) {
		now := s.clock.Now()
		stored.Status = tracker.JobStatusProcessing
		stored.Started = &now
	})
}

// MarkSuccessful transitions the job to SUCCESSFUL.
func (s *JobStore) MarkSuccessful(_ context.Context, job *tracker.Job) error {
	return s.transition(job, func(stored *tracker.Job) {
		now := s.clock.Now()
		stored.Status = tracker.JobStatusSuccessful
		stored.Finished = &now
	})
}

// MarkFailed transitions the job to FAILED with the captured error text.
func (s *JobStore) MarkFailed(_ context.Context, job *tracker.Job, errText string) error {
	return s.transition(job, func(stored *tracker.Job) {
		now := s.clock.Now()
		stored.Status = tracker.JobStatusFailed
		stored.Finished = &now
		stored.ErrorText = errText
	})
}

func (s *JobStore) transition(job *tracker.Job, apply func(*tracker.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.jobs[job.ID]
	if !ok {
		return fmt.Errorf("job %s not found", job.ID)
	}
	apply(stored)
	*job = *stored
	return nil
}
