package postgres

import (
	"context"
	"fmt"

	"github.com/JakeFAU/book-release-tracker/internal/tracker"
)

// SaveSeries inserts the series if its asin is unknown. Existing rows are
// left untouched: the first recorded name and first-seen timestamp win.
func (s *Store) SaveSeries(ctx context.Context, series tracker.Series) error {
	if _, err := s.db.Exec(ctx,
		`INSERT INTO series (asin, name, time_first_seen)
			VALUES ($1, $2, $3)
			ON CONFLICT (asin) DO NOTHING`,
		series.ASIN, series.Name, series.FirstSeen); err != nil {
		return fmt.Errorf("save series %s: %w", series.ASIN, err)
	}
	return nil
}

// GetSeries fetches a single series by asin.
func (s *Store) GetSeries(ctx context.Context, asin string) (tracker.Series, error) {
	var series tracker.Series
	if err := s.db.QueryRow(ctx,
		`SELECT asin, name, time_first_seen FROM series WHERE asin = $1`, asin).
		Scan(&series.ASIN, &series.Name, &series.FirstSeen); err != nil {
		return tracker.Series{}, fmt.Errorf("get series %s: %w", asin, err)
	}
	return series, nil
}

// ListSeries returns every tracked series ordered by name.
func (s *Store) ListSeries(ctx context.Context) ([]tracker.Series, error) {
	rows, err := s.db.Query(ctx,
		`SELECT asin, name, time_first_seen FROM series ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var out []tracker.Series
	for rows.Next() {
		var series tracker.Series
		if err := rows.Scan(&series.ASIN, &series.Name, &series.FirstSeen); err != nil {
			return nil, fmt.Errorf("scan series row: %w", err)
		}
		out = append(out, series)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	return out, nil
}

// ListSeriesForUser returns every series with the user's subscription flag
// and the total subscriber count, ordered by name.
func (s *Store) ListSeriesForUser(ctx context.Context, username string) ([]tracker.SeriesWithStatus, error) {
	rows, err := s.db.Query(ctx,
		`SELECT
			series.asin, series.name, series.time_first_seen,
			COALESCE(BOOL_OR(subscriptions.username = $1), FALSE) AS subscribed,
			COUNT(subscriptions.username) AS subscribers
		FROM series
		LEFT JOIN subscriptions ON subscriptions.series_asin = series.asin
		GROUP BY series.asin, series.name, series.time_first_seen
		ORDER BY series.name`, username)
	if err != nil {
		return nil, fmt.Errorf("list series for %s: %w", username, err)
	}
	defer rows.Close()

	var out []tracker.SeriesWithStatus
	for rows.Next() {
		var row tracker.SeriesWithStatus
		if err := rows.Scan(&row.ASIN, &row.Name, &row.FirstSeen, &row.Subscribed, &row.Subscribers); err != nil {
			return nil, fmt.Errorf("scan series row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list series for %s: %w", username, err)
	}
	return out, nil
}

// DeleteSeries removes a series together with its books, subscriptions and
// read state.
func (s *Store) DeleteSeries(ctx context.Context, asin string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete series: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM reads WHERE book_asin IN (SELECT asin FROM books WHERE series_asin = $1)`,
		asin); err != nil {
		return fmt.Errorf("delete read state for series %s: %w", asin, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM books WHERE series_asin = $1`, asin); err != nil {
		return fmt.Errorf("delete books for series %s: %w", asin, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM subscriptions WHERE series_asin = $1`, asin); err != nil {
		return fmt.Errorf("delete subscriptions for series %s: %w", asin, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM series WHERE asin = $1`, asin); err != nil {
		return fmt.Errorf("delete series %s: %w", asin, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete series: %w", err)
	}
	return nil
}

// Subscribe records the user's interest in a series. Subscribing twice is a
// no-op.
func (s *Store) Subscribe(ctx context.Context, username, seriesASIN string) error {
	if _, err := s.db.Exec(ctx,
		`INSERT INTO subscriptions (username, series_asin)
			VALUES ($1, $2)
			ON CONFLICT (username, series_asin) DO NOTHING`,
		username, seriesASIN); err != nil {
		return fmt.Errorf("subscribe %s to %s: %w", username, seriesASIN, err)
	}
	return nil
}

// Unsubscribe removes the user's subscription if one exists.
func (s *Store) Unsubscribe(ctx context.Context, username, seriesASIN string) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM subscriptions WHERE username = $1 AND series_asin = $2`,
		username, seriesASIN); err != nil {
		return fmt.Errorf("unsubscribe %s from %s: %w", username, seriesASIN, err)
	}
	return nil
}
