package postgres

import (
	"context"
	"fmt"

	"github.com/JakeFAU/book-release-tracker/internal/tracker"
)

const bookColumns = `asin, series_asin, ordinal, title, author, release_date, time_first_seen`

// SaveBook inserts the book if its asin is unknown. A re-scrape of the
// series never overwrites an existing row, so a recorded release date is
// never cleared by a later save.
func (s *Store) SaveBook(ctx context.Context, book tracker.Book) error {
	if _, err := s.db.Exec(ctx,
		`INSERT INTO books (asin, series_asin, ordinal, title, author, release_date, time_first_seen)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (asin) DO NOTHING`,
		book.ASIN, book.SeriesASIN, book.Ordinal, book.Title, book.Author,
		book.ReleaseDate, book.FirstSeen); err != nil {
		return fmt.Errorf("save book %s: %w", book.ASIN, err)
	}
	return nil
}

// GetBook fetches a single book by asin.
func (s *Store) GetBook(ctx context.Context, asin string) (tracker.Book, error) {
	var book tracker.Book
	if err := s.db.QueryRow(ctx,
		`SELECT `+bookColumns+` FROM books WHERE asin = $1`, asin).
		Scan(&book.ASIN, &book.SeriesASIN, &book.Ordinal, &book.Title,
			&book.Author, &book.ReleaseDate, &book.FirstSeen); err != nil {
		return tracker.Book{}, fmt.Errorf("get book %s: %w", asin, err)
	}
	return book, nil
}

// ListBySeries returns the locally-known books of a series in series order.
func (s *Store) ListBySeries(ctx context.Context, seriesASIN string) ([]tracker.Book, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+bookColumns+` FROM books WHERE series_asin = $1 ORDER BY ordinal`,
		seriesASIN)
	if err != nil {
		return nil, fmt.Errorf("list books for series %s: %w", seriesASIN, err)
	}
	defer rows.Close()

	var out []tracker.Book
	for rows.Next() {
		var book tracker.Book
		if err := rows.Scan(&book.ASIN, &book.SeriesASIN, &book.Ordinal, &book.Title,
			&book.Author, &book.ReleaseDate, &book.FirstSeen); err != nil {
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		out = append(out, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list books for series %s: %w", seriesASIN, err)
	}
	return out, nil
}

// SetReleaseDate fills in a missing release date. The WHERE clause restricts
// the update to NULL rows, so a date that is already recorded is never
// overwritten regardless of what a later scrape reports.
func (s *Store) SetReleaseDate(ctx context.Context, asin, releaseDate string) error {
	if _, err := s.db.Exec(ctx,
		`UPDATE books SET release_date = $1 WHERE asin = $2 AND release_date IS NULL`,
		releaseDate, asin); err != nil {
		return fmt.Errorf("set release date for %s: %w", asin, err)
	}
	return nil
}

// ListBooksForUser returns every book from the user's subscribed series with
// its read flag, soonest release first and undated books last.
func (s *Store) ListBooksForUser(ctx context.Context, username string) ([]tracker.BookWithReadState, error) {
	rows, err := s.db.Query(ctx,
		`SELECT
			books.asin, books.series_asin, books.ordinal, books.title,
			books.author, books.release_date, books.time_first_seen,
			reads.book_asin IS NOT NULL AS read
		FROM books
		JOIN subscriptions
			ON subscriptions.series_asin = books.series_asin
			AND subscriptions.username = $1
		LEFT JOIN reads
			ON reads.book_asin = books.asin
			AND reads.username = $1
		ORDER BY books.release_date ASC NULLS LAST, books.ordinal ASC`, username)
	if err != nil {
		return nil, fmt.Errorf("list books for %s: %w", username, err)
	}
	defer rows.Close()

	var out []tracker.BookWithReadState
	for rows.Next() {
		var row tracker.BookWithReadState
		if err := rows.Scan(&row.ASIN, &row.SeriesASIN, &row.Ordinal, &row.Title,
			&row.Author, &row.ReleaseDate, &row.FirstSeen, &row.Read); err != nil {
			return nil, fmt.Errorf("scan book row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list books for %s: %w", username, err)
	}
	return out, nil
}

// MarkRead records that the user has read the book, updating the read date
// if the book was already marked.
func (s *Store) MarkRead(ctx context.Context, username, bookASIN, readDate string) error {
	if _, err := s.db.Exec(ctx,
		`INSERT INTO reads (username, book_asin, read_date)
			VALUES ($1, $2, NULLIF($3, ''))
			ON CONFLICT (username, book_asin) DO UPDATE SET read_date = EXCLUDED.read_date`,
		username, bookASIN, readDate); err != nil {
		return fmt.Errorf("mark %s read for %s: %w", bookASIN, username, err)
	}
	return nil
}

// MarkUnread clears the user's read state for the book.
func (s *Store) MarkUnread(ctx context.Context, username, bookASIN string) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM reads WHERE username = $1 AND book_asin = $2`,
		username, bookASIN); err != nil {
		return fmt.Errorf("mark %s unread for %s: %w", bookASIN, username, err)
	}
	return nil
}
