// Package worker implements the scrape pipeline execution loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/book-release-tracker/internal/extract"
	"github.com/JakeFAU/book-release-tracker/internal/metrics"
	"github.com/JakeFAU/book-release-tracker/internal/tracker"
)

// Config controls Worker behavior.
type Config struct {
	// PollInterval is how long the run loop sleeps after draining the queue.
	PollInterval time.Duration
	// BaseURL is the retailer root; product paths are appended to it.
	BaseURL string
}

// Worker drains the job queue one job at a time: it fetches the rendered
// product page, extracts series and book records, and commits them.
type Worker struct {
	jobs    tracker.JobStore
	series  tracker.SeriesStore
	books   tracker.BookStore
	fetcher tracker.Fetcher
	clock   tracker.Clock
	cfg     Config
	logger  *zap.Logger

	// gate has capacity one. Every processing path acquires it first, so at
	// most one browser session is live no matter how many goroutines call in.
	gate chan struct{}
}

// fatalError marks a job-store failure. Unlike a scrape failure, which is
// recorded on the job, a broken queue means nothing can be recorded at all,
// so the run loop has to stop.
type fatalError struct{ err error }

func (e fatalError) Error() string { return e.err.Error() }
func (e fatalError) Unwrap() error { return e.err }

// New constructs a Worker.
func New(
	jobs tracker.JobStore,
	series tracker.SeriesStore,
	books tracker.BookStore,
	fetcher tracker.Fetcher,
	clock tracker.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.amazon.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	metrics.Init()
	return &Worker{
		jobs:    jobs,
		series:  series,
		books:   books,
		fetcher: fetcher,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
		gate:    make(chan struct{}, 1),
	}
}

// Run polls the queue until the context finishes. It returns a non-nil error
// only when the job store itself fails; scrape failures are recorded on the
// jobs and the loop keeps going.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		processed, err := w.ProcessAll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error("job store unavailable, stopping worker", zap.Error(err))
			return err
		}
		if processed > 0 {
			w.logger.Debug("queue drained", zap.Int("jobs_processed", processed))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessAll runs jobs until the queue is empty and returns how many it ran.
func (w *Worker) ProcessAll(ctx context.Context) (int, error) {
	processed := 0
	for {
		ran, err := w.ProcessOne(ctx)
		if err != nil {
			return processed, err
		}
		if !ran {
			return processed, nil
		}
		processed++
	}
}

// ProcessOne takes the oldest pending job, runs it to a terminal status, and
// reports whether a job was available. The returned error is reserved for
// job-store failures.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	select {
	case w.gate <- struct{}{}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	defer func() { <-w.gate }()

	job, err := w.jobs.FetchNext(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch next job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	metrics.SetJobInProgress(true)
	defer metrics.SetJobInProgress(false)

	if err := w.jobs.MarkProcessing(ctx, job); err != nil {
		return false, fmt.Errorf("mark job processing: %w", err)
	}

	params, err := tracker.DecodeParams(job.RawParams)
	if err != nil {
		w.logger.Warn("job has undecodable params",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		metrics.ObserveJob("unknown", "failed")
		if err := w.jobs.MarkFailed(ctx, job, err.Error()); err != nil {
			return false, fmt.Errorf("mark job failed: %w", err)
		}
		return true, nil
	}

	w.logger.Info("job started",
		zap.String("job_id", job.ID),
		zap.String("kind", params.Kind),
	)

	var runErr error
	switch params.Kind {
	case tracker.JobKindSeries:
		runErr = w.runSeries(ctx, job, params.Series)
	case tracker.JobKindBook:
		runErr = w.runBook(ctx, params.Book)
	}

	var fatal fatalError
	if errors.As(runErr, &fatal) {
		return false, fatal.err
	}

	if runErr != nil {
		w.logger.Warn("job failed",
			zap.String("job_id", job.ID),
			zap.String("kind", params.Kind),
			zap.Error(runErr),
		)
		metrics.ObserveJob(params.Kind, "failed")
		if err := w.jobs.MarkFailed(ctx, job, runErr.Error()); err != nil {
			return false, fmt.Errorf("mark job failed: %w", err)
		}
		return true, nil
	}

	metrics.ObserveJob(params.Kind, "successful")
	if err := w.jobs.MarkSuccessful(ctx, job); err != nil {
		return false, fmt.Errorf("mark job successful: %w", err)
	}
	w.logger.Info("job succeeded",
		zap.String("job_id", job.ID),
		zap.String("kind", params.Kind),
	)
	return true, nil
}

// runSeries scrapes a series page, commits the series and any newly seen
// books, then enqueues a book job for every book still missing its release
// date. Child jobs inherit the requester so attribution survives the cascade.
func (w *Worker) runSeries(ctx context.Context, job *tracker.Job, params *tracker.SeriesParams) error {
	url := fmt.Sprintf("%s/dp/%s", w.cfg.BaseURL, params.ASIN)
	resp, err := w.fetcher.Fetch(ctx, tracker.FetchRequest{URL: url, ExpandShowAll: true})
	metrics.ObserveFetch("series", resp.Duration, err)
	if err != nil {
		return fmt.Errorf("fetch series page: %w", err)
	}

	result, err := extract.Series(resp.HTML, params.ASIN, w.clock.Now())
	if err != nil {
		return fmt.Errorf("extract series: %w", err)
	}

	if err := w.series.SaveSeries(ctx, result.Series); err != nil {
		return fmt.Errorf("save series: %w", err)
	}

	known, err := w.books.ListBySeries(ctx, params.ASIN)
	if err != nil {
		return fmt.Errorf("list known books: %w", err)
	}
	knownASINs := make(map[string]bool, len(known))
	for _, book := range known {
		knownASINs[book.ASIN] = true
	}

	discovered := 0
	for _, book := range result.Books {
		// Known books are left untouched here. Their missing dates are
		// filled by dedicated book jobs, never from the series page.
		if knownASINs[book.ASIN] {
			continue
		}
		if err := w.books.SaveBook(ctx, book); err != nil {
			return fmt.Errorf("save book %s: %w", book.ASIN, err)
		}
		metrics.ObserveBookDiscovered()
		discovered++
	}

	committed, err := w.books.ListBySeries(ctx, params.ASIN)
	if err != nil {
		return fmt.Errorf("list committed books: %w", err)
	}
	enqueued := 0
	for _, book := range committed {
		if book.ReleaseDate != nil {
			continue
		}
		raw, err := tracker.NewBookParams(book.ASIN, job.ID).Encode()
		if err != nil {
			return fmt.Errorf("encode book params %s: %w", book.ASIN, err)
		}
		if _, err := w.jobs.Enqueue(ctx, raw, job.Requester); err != nil {
			return fatalError{fmt.Errorf("enqueue book job %s: %w", book.ASIN, err)}
		}
		enqueued++
	}

	w.logger.Info("series scraped",
		zap.String("series_asin", params.ASIN),
		zap.String("name", result.Series.Name),
		zap.Int("books_seen", len(result.Books)),
		zap.Int("books_discovered", discovered),
		zap.Int("book_jobs_enqueued", enqueued),
	)
	return nil
}

// runBook scrapes a single book's detail page for its publication date and
// fills in the missing release date.
func (w *Worker) runBook(ctx context.Context, params *tracker.BookParams) error {
	url := fmt.Sprintf("%s/gp/product/%s", w.cfg.BaseURL, params.ASIN)
	resp, err := w.fetcher.Fetch(ctx, tracker.FetchRequest{URL: url})
	metrics.ObserveFetch("book", resp.Duration, err)
	if err != nil {
		return fmt.Errorf("fetch book page: %w", err)
	}

	releaseDate, err := extract.BookReleaseDate(resp.HTML)
	if err != nil {
		return fmt.Errorf("extract release date: %w", err)
	}

	if err := w.books.SetReleaseDate(ctx, params.ASIN, releaseDate); err != nil {
		return fmt.Errorf("set release date %s: %w", params.ASIN, err)
	}
	metrics.ObserveReleaseDate()

	w.logger.Info("release date committed",
		zap.String("asin", params.ASIN),
		zap.String("release_date", releaseDate),
	)
	return nil
}
