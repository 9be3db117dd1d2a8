package tracker

import (
	"context"
	"time"
)

// JobStore is the durable job queue: FIFO by creation time, with idempotent
// enqueue and atomic status transitions.
type JobStore interface {
	// Enqueue inserts a QUEUED job, unless a QUEUED job with a byte-identical
	// payload already exists, in which case that job is returned unchanged.
	Enqueue(ctx context.Context, rawParams string, requester string) (Job, error)

	// FetchNext returns the oldest job that is QUEUED or PROCESSING, or nil
	// when the queue is drained. PROCESSING jobs are included deliberately:
	// a job left PROCESSING by a crash must be picked up again on the next
	// poll rather than orphaned.
	FetchNext(ctx context.Context) (*Job, error)

	// ListJobs returns every job ever created, newest first.
	ListJobs(ctx context.Context) ([]Job, error)

	// Status transitions. Each is a single atomic update of status plus the
	// relevant timestamp (and error text for failures), and each mutates the
	// passed-in handle so the caller sees consistent state without a re-query.
	MarkProcessing(ctx context.Context, job *Job) error
	MarkSuccessful(ctx context.Context, job *Job) error
	MarkFailed(ctx context.Context, job *Job, errText string) error
}

// SeriesStore persists tracked series.
type SeriesStore interface {
	// SaveSeries inserts the series if its asin is unknown; existing rows are
	// never overwritten, so the first-seen name and timestamp win.
	SaveSeries(ctx context.Context, series Series) error
	GetSeries(ctx context.Context, asin string) (Series, error)
	ListSeries(ctx context.Context) ([]Series, error)
	ListSeriesForUser(ctx context.Context, username string) ([]SeriesWithStatus, error)
	// DeleteSeries removes a series and all of its books.
	DeleteSeries(ctx context.Context, asin string) error
	Subscribe(ctx context.Context, username, seriesASIN string) error
	Unsubscribe(ctx context.Context, username, seriesASIN string) error
}

// BookStore persists discovered books and per-user read state.
type BookStore interface {
	// SaveBook inserts the book if its asin is unknown; a re-scrape of the
	// series never overwrites a previously recorded row.
	SaveBook(ctx context.Context, book Book) error
	GetBook(ctx context.Context, asin string) (Book, error)
	ListBySeries(ctx context.Context, seriesASIN string) ([]Book, error)
	// SetReleaseDate fills in a missing release date. It only ever moves a
	// NULL to a value; a date that is already set stays as it was recorded.
	SetReleaseDate(ctx context.Context, asin, releaseDate string) error
	ListBooksForUser(ctx context.Context, username string) ([]BookWithReadState, error)
	MarkRead(ctx context.Context, username, bookASIN, readDate string) error
	MarkUnread(ctx context.Context, username, bookASIN string) error
}

// FetchRequest captures everything needed to load one remote page.
type FetchRequest struct {
	URL string
	// ExpandShowAll activates the series page's "show all" control when it is
	// present, then waits for the lazy-loaded children to settle.
	ExpandShowAll bool
}

// FetchResponse is the rendered page returned by a Fetcher.
type FetchResponse struct {
	URL      string
	HTML     string
	Duration time.Duration
}

// Fetcher loads a URL in a fresh remote-controlled browser session and
// returns the rendered DOM. Implementations must tear the session down on
// every exit path; a leaked browser process is a correctness bug because
// each job opens a new session.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
