package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/book-release-tracker/internal/tracker"
)

type fixedIDs struct{ id string }

func (f fixedIDs) NewID() (string, error) { return f.id, nil }

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

var jobColumnNames = []string{
	"id", "params", "status", "errors", "username",
	"time_created", "time_started", "time_finished",
}

func newMockStore(t *testing.T, id string, now time.Time) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewStoreWithDB(mock, fixedIDs{id: id}, fixedClock{now: now})
	require.NoError(t, err)
	return mock, store
}

func TestEnqueue_InsertsNewJob(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	mock, store := newMockStore(t, "job-uuid-1", now)

	raw, err := tracker.NewSeriesParams("B09FSCHFGK").Encode()
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE status = 'QUEUED' AND params = \$1`).
		WithArgs(raw).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO jobs (.+) ON CONFLICT \(params\) WHERE status = 'QUEUED' DO NOTHING`).
		WithArgs("job-uuid-1", raw, "alice", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	job, err := store.Enqueue(context.Background(), raw, "alice")
	require.NoError(t, err)
	require.Equal(t, "job-uuid-1", job.ID)
	require.Equal(t, tracker.JobStatusQueued, job.Status)
	require.Equal(t, now, job.Created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueue_ReturnsExistingQueuedJob(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	mock, store := newMockStore(t, "unused", now)

	raw, err := tracker.NewSeriesParams("B09FSCHFGK").Encode()
	require.NoError(t, err)
	created := now.Add(-time.Hour)

	mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE status = 'QUEUED' AND params = \$1`).
		WithArgs(raw).
		WillReturnRows(pgxmock.NewRows(jobColumnNames).
			AddRow("job-uuid-0", raw, "QUEUED", "", "alice", created, nil, nil))

	job, err := store.Enqueue(context.Background(), raw, "bob")
	require.NoError(t, err)
	require.Equal(t, "job-uuid-0", job.ID)
	require.Equal(t, "alice", job.Requester)
	require.Equal(t, created, job.Created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueue_ConcurrentInsertLosesCleanly(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	mock, store := newMockStore(t, "job-uuid-2", now)

	raw, err := tracker.NewSeriesParams("B09FSCHFGK").Encode()
	require.NoError(t, err)
	created := now.Add(-time.Second)

	// Another enqueue commits the same payload between our duplicate check
	// and our insert: the partial unique index rejects the insert and the
	// next pass returns the winner's row.
	mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE status = 'QUEUED' AND params = \$1`).
		WithArgs(raw).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO jobs (.+) ON CONFLICT \(params\) WHERE status = 'QUEUED' DO NOTHING`).
		WithArgs("job-uuid-2", raw, "bob", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectQuery(`SELECT (.+) FROM jobs WHERE status = 'QUEUED' AND params = \$1`).
		WithArgs(raw).
		WillReturnRows(pgxmock.NewRows(jobColumnNames).
			AddRow("job-uuid-1", raw, "QUEUED", "", "alice", created, nil, nil))

	job, err := store.Enqueue(context.Background(), raw, "bob")
	require.NoError(t, err)
	require.Equal(t, "job-uuid-1", job.ID)
	require.Equal(t, "alice", job.Requester)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchNext_EmptyQueue(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t, "unused", time.Now())

	mock.ExpectQuery(`SELECT (.+) FROM jobs`).
		WillReturnError(pgx.ErrNoRows)

	job, err := store.FetchNext(context.Background())
	require.NoError(t, err)
	require.Nil(t, job)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchNext_IncludesProcessing(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	mock, store := newMockStore(t, "unused", now)
	started := now.Add(-time.Minute)

	mock.ExpectQuery(`WHERE status IN \('QUEUED', 'PROCESSING'\)`).
		WillReturnRows(pgxmock.NewRows(jobColumnNames).
			AddRow("job-uuid-9", `{"kind":"series","series":{"asin":"B09FSCHFGK"}}`,
				"PROCESSING", "", "", now.Add(-time.Hour), &started, nil))

	job, err := store.FetchNext(context.Background())
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, tracker.JobStatusProcessing, job.Status)
	require.NotNil(t, job.Started)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkTransitions_UpdateRowAndHandle(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	mock, store := newMockStore(t, "unused", now)

	job := tracker.Job{ID: "job-uuid-2", Status: tracker.JobStatusQueued}

	mock.ExpectExec(`UPDATE jobs SET status = 'PROCESSING', time_started = \$1 WHERE id = \$2`).
		WithArgs(now, "job-uuid-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.MarkProcessing(context.Background(), &job))
	require.Equal(t, tracker.JobStatusProcessing, job.Status)
	require.NotNil(t, job.Started)
	require.Equal(t, now, *job.Started)

	mock.ExpectExec(`UPDATE jobs SET status = 'FAILED', time_finished = \$1, errors = \$2 WHERE id = \$3`).
		WithArgs(now, "series title hook not found", "job-uuid-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, store.MarkFailed(context.Background(), &job, "series title hook not found"))
	require.Equal(t, tracker.JobStatusFailed, job.Status)
	require.Equal(t, "series title hook not found", job.ErrorText)
	require.NotNil(t, job.Finished)

	require.NoError(t, mock.ExpectationsWereMet())
}
