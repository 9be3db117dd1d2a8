// Package service exposes the tracker's user-facing operations: requesting
// scrapes, browsing results, and managing subscriptions and read state.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/JakeFAU/book-release-tracker/internal/tracker"
)

// Service wires the stores together behind the operations the outside world
// is allowed to call. All scraping happens through the job queue; nothing
// here touches a browser.
type Service struct {
	jobs   tracker.JobStore
	series tracker.SeriesStore
	books  tracker.BookStore
	clock  tracker.Clock
	logger *zap.Logger
	cron   *cron.Cron
}

// New constructs a Service.
func New(
	jobs tracker.JobStore,
	series tracker.SeriesStore,
	books tracker.BookStore,
	clock tracker.Clock,
	logger *zap.Logger,
) *Service {
	return &Service{
		jobs:   jobs,
		series: series,
		books:  books,
		clock:  clock,
		logger: logger,
	}
}

// EnqueueSeries requests a scrape of one series. The asin is normalized and
// validated before anything touches the queue; enqueueing is idempotent, so
// repeat requests while a scrape is pending return the pending job.
func (s *Service) EnqueueSeries(ctx context.Context, asin, requester string) (tracker.Job, error) {
	asin = strings.ToUpper(strings.TrimSpace(asin))
	if err := tracker.ValidateASIN(asin); err != nil {
		return tracker.Job{}, err
	}
	raw, err := tracker.NewSeriesParams(asin).Encode()
	if err != nil {
		return tracker.Job{}, fmt.Errorf("encode series params: %w", err)
	}
	job, err := s.jobs.Enqueue(ctx, raw, requester)
	if err != nil {
		return tracker.Job{}, fmt.Errorf("enqueue series job: %w", err)
	}
	s.logger.Info("series scrape requested",
		zap.String("asin", asin),
		zap.String("job_id", job.ID),
		zap.String("requester", requester),
	)
	return job, nil
}

// EnqueueAllSeries requests a re-scrape of every tracked series and returns
// how many jobs were requested. Idempotent enqueueing collapses series that
// already have a pending job.
func (s *Service) EnqueueAllSeries(ctx context.Context, requester string) (int, error) {
	all, err := s.series.ListSeries(ctx)
	if err != nil {
		return 0, fmt.Errorf("list series: %w", err)
	}
	for _, series := range all {
		if _, err := s.EnqueueSeries(ctx, series.ASIN, requester); err != nil {
			return 0, fmt.Errorf("enqueue series %s: %w", series.ASIN, err)
		}
	}
	return len(all), nil
}

// StartDailyRefresh schedules EnqueueAllSeries on a daily cadence. Call
// StopDailyRefresh on shutdown.
func (s *Service) StartDailyRefresh(ctx context.Context) {
	s.cron = cron.New()
	// AddFunc only errors on a malformed schedule; this one is fixed.
	_, _ = s.cron.AddFunc("@every 24h", func() {
		count, err := s.EnqueueAllSeries(ctx, "")
		if err != nil {
			s.logger.Error("daily refresh failed", zap.Error(err))
			return
		}
		s.logger.Info("daily refresh enqueued", zap.Int("series", count))
	})
	s.cron.Start()
}

// StopDailyRefresh stops the refresh schedule and waits for a running
// refresh to finish.
func (s *Service) StopDailyRefresh() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// ListJobs returns the full job history, newest first.
func (s *Service) ListJobs(ctx context.Context) ([]tracker.Job, error) {
	return s.jobs.ListJobs(ctx)
}

// ListSeries returns every tracked series.
func (s *Service) ListSeries(ctx context.Context) ([]tracker.Series, error) {
	return s.series.ListSeries(ctx)
}

// ListSeriesForUser returns every tracked series with the user's
// subscription flag and the subscriber count.
func (s *Service) ListSeriesForUser(ctx context.Context, username string) ([]tracker.SeriesWithStatus, error) {
	return s.series.ListSeriesForUser(ctx, username)
}

// ListBooks returns the known books of one series in series order.
func (s *Service) ListBooks(ctx context.Context, seriesASIN string) ([]tracker.Book, error) {
	return s.books.ListBySeries(ctx, seriesASIN)
}

// ListBooksForUser returns the books of the user's subscribed series with
// read flags, dated books first.
func (s *Service) ListBooksForUser(ctx context.Context, username string) ([]tracker.BookWithReadState, error) {
	return s.books.ListBooksForUser(ctx, username)
}

// DeleteSeries removes a series along with its books, subscriptions, and
// read records.
func (s *Service) DeleteSeries(ctx context.Context, asin string) error {
	if err := s.series.DeleteSeries(ctx, asin); err != nil {
		return fmt.Errorf("delete series: %w", err)
	}
	s.logger.Info("series deleted", zap.String("asin", asin))
	return nil
}

// Subscribe adds the user to a series' subscriber list.
func (s *Service) Subscribe(ctx context.Context, username, seriesASIN string) error {
	return s.series.Subscribe(ctx, username, seriesASIN)
}

// Unsubscribe removes the user from a series' subscriber list.
func (s *Service) Unsubscribe(ctx context.Context, username, seriesASIN string) error {
	return s.series.Unsubscribe(ctx, username, seriesASIN)
}

// MarkRead records that the user finished a book, dated today.
func (s *Service) MarkRead(ctx context.Context, username, bookASIN string) error {
	return s.books.MarkRead(ctx, username, bookASIN, s.clock.Now().Format("2006-01-02"))
}

// MarkUnread deletes the user's read record for a book.
func (s *Service) MarkUnread(ctx context.Context, username, bookASIN string) error {
	return s.books.MarkUnread(ctx, username, bookASIN)
}
