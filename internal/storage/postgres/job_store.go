package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/book-release-tracker/internal/tracker"
)

const jobColumns = `id, params, status, COALESCE(errors, ''), COALESCE(username, ''),
	time_created, time_started, time_finished`

// Enqueue inserts a QUEUED job unless one with a byte-identical payload is
// already waiting, in which case the waiting job is returned. The dedup is
// backed by the partial unique index on (params) WHERE status = 'QUEUED':
// a read-then-insert alone would let two concurrent enqueues of the same
// payload both insert, so the insert rides on the index and loses cleanly
// when another enqueue got there first.
func (s *Store) Enqueue(ctx context.Context, rawParams string, requester string) (tracker.Job, error) {
	for {
		existing, err := scanJob(s.db.QueryRow(ctx,
			`SELECT `+jobColumns+` FROM jobs WHERE status = 'QUEUED' AND params = $1`, rawParams))
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return tracker.Job{}, fmt.Errorf("check queued duplicates: %w", err)
		}

		id, err := s.ids.NewID()
		if err != nil {
			return tracker.Job{}, err
		}
		now := s.clock.Now()
		tag, err := s.db.Exec(ctx,
			`INSERT INTO jobs (id, params, status, username, time_created)
				VALUES ($1, $2, 'QUEUED', NULLIF($3, ''), $4)
				ON CONFLICT (params) WHERE status = 'QUEUED' DO NOTHING`,
			id, rawParams, requester, now)
		if err != nil {
			return tracker.Job{}, fmt.Errorf("insert job: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// A concurrent enqueue of the same payload won the insert; the
			// next pass picks its row up.
			continue
		}

		return tracker.Job{
			ID:        id,
			RawParams: rawParams,
			Status:    tracker.JobStatusQueued,
			Requester: requester,
			Created:   now,
		}, nil
	}
}

// FetchNext returns the oldest QUEUED or PROCESSING job, or nil when the
// queue is drained. PROCESSING rows are included so a job interrupted by a
// crash is resumed on the next poll instead of being orphaned.
func (s *Store) FetchNext(ctx context.Context) (*tracker.Job, error) {
	job, err := scanJob(s.db.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs
			WHERE status IN ('QUEUED', 'PROCESSING')
			ORDER BY time_created ASC LIMIT 1`))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch next job: %w", err)
	}
	return &job, nil
}

// ListJobs returns every job ever created, newest first.
func (s *Store) ListJobs(ctx context.Context) ([]tracker.Job, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY time_created DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []tracker.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// MarkProcessing transitions the job to PROCESSING and stamps its start time.
func (s *Store) MarkProcessing(ctx context.Context, job *tracker.Job) error {
	now := s.clock.Now()
	if _, err := s.db.Exec(ctx,
		`UPDATE jobs SET status = 'PROCESSING', time_started = $1 WHERE id = $2`,
		now, job.ID); err != nil {
		return fmt.Errorf("mark job %s processing: %w", job.ID, err)
	}
	job.Status = tracker.JobStatusProcessing
	job.Started = &now
	return nil
}

// MarkSuccessful transitions the job to its SUCCESSFUL terminal state.
func (s *Store) MarkSuccessful(ctx context.Context, job *tracker.Job) error {
	now := s.clock.Now()
	if _, err := s.db.Exec(ctx,
		`UPDATE jobs SET status = 'SUCCESSFUL', time_finished = $1 WHERE id = $2`,
		now, job.ID); err != nil {
		return fmt.Errorf("mark job %s successful: %w", job.ID, err)
	}
	job.Status = tracker.JobStatusSuccessful
	job.Finished = &now
	return nil
}

// MarkFailed transitions the job to its FAILED terminal state, recording the
// captured error text.
func (s *Store) MarkFailed(ctx context.Context, job *tracker.Job, errText string) error {
	now := s.clock.Now()
	if _, err := s.db.Exec(ctx,
		`UPDATE jobs SET status = 'FAILED', time_finished = $1, errors = $2 WHERE id = $3`,
		now, errText, job.ID); err != nil {
		return fmt.Errorf("mark job %s failed: %w", job.ID, err)
	}
	job.Status = tracker.JobStatusFailed
	job.Finished = &now
	job.ErrorText = errText
	return nil
}

func scanJob(row pgx.Row) (tracker.Job, error) {
	var job tracker.Job
	err := row.Scan(
		&job.ID,
		&job.RawParams,
		&job.Status,
		&job.ErrorText,
		&job.Requester,
		&job.Created,
		&job.Started,
		&job.Finished,
	)
	return job, err
}
