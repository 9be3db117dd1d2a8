package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/book-release-tracker/internal/tracker"
)

type readKey struct {
	username string
	bookASIN string
}

type subKey struct {
	username   string
	seriesASIN string
}

// EntityStore is an in-memory tracker.SeriesStore and tracker.BookStore.
type EntityStore struct {
	mu            sync.RWMutex
	series        map[string]tracker.Series
	books         map[string]tracker.Book
	subscriptions map[subKey]struct{}
	reads         map[readKey]string
}

// NewEntityStore constructs an EntityStore.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		series:        make(map[string]tracker.Series),
		books:         make(map[string]tracker.Book),
		subscriptions: make(map[subKey]struct{}),
		reads:         make(map[readKey]string),
	}
}

// SaveSeries inserts the series if its asin is unknown.
func (s *EntityStore) SaveSeries(_ context.Context, series tracker.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.series[series.ASIN]; !exists {
		s.series[series.ASIN] = series
	}
	return nil
}

// GetSeries fetches a single series by asin.
func (s *EntityStore) GetSeries(_ context.Context, asin string) (tracker.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series, ok := s.series[asin]
	if !ok {
		return tracker.Series{}, fmt.Errorf("series %s not found", asin)
	}
	return series, nil
}

// ListSeries returns every tracked series ordered by name.
func (s *EntityStore) ListSeries(_ context.Context) ([]tracker.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tracker.Series, 0, len(s.series))
	for _, series := range s.series {
		out = append(out, series)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListSeriesForUser returns every series with subscription status for the
// user.
func (s *EntityStore) ListSeriesForUser(_ context.Context, username string) ([]tracker.SeriesWithStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tracker.SeriesWithStatus, 0, len(s.series))
	for _, series := range s.series {
		row := tracker.SeriesWithStatus{Series: series}
		for key := range s.subscriptions {
			if key.seriesASIN != series.ASIN {
				continue
			}
			row.Subscribers++
			if key.username == username {
				row.Subscribed = true
			}
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteSeries removes a series together with its books, subscriptions and
// read state.
func (s *EntityStore) DeleteSeries(_ context.Context, asin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.series, asin)
	for bookASIN, book := range s.books {
		if book.SeriesASIN != asin {
			continue
		}
		delete(s.books, bookASIN)
		for key := range s.reads {
			if key.bookASIN == bookASIN {
				delete(s.reads, key)
			}
		}
	}
	for key := range s.subscriptions {
		if key.seriesASIN == asin {
			delete(s.subscriptions, key)
		}
	}
	return nil
}

// Subscribe records the user's interest in a series.
func (s *EntityStore) Subscribe(_ context.Context, username, seriesASIN string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[subKey{username: username, seriesASIN: seriesASIN}] = struct{}{}
	return nil
}

// Unsubscribe removes the user's subscription.
func (s *EntityStore) Unsubscribe(_ context.Context, username, seriesASIN string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, subKey{username: username, seriesASIN: seriesASIN})
	return nil
}

// SaveBook inserts the book if its asin is unknown; existing rows are never
// overwritten.
func (s *EntityStore) SaveBook(_ context.Context, book tracker.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.books[book.ASIN]; !exists {
		s.books[book.ASIN] = book
	}
	return nil
}

// GetBook fetches a single book by asin.
func (s *EntityStore) GetBook(_ context.Context, asin string) (tracker.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	book, ok := s.books[asin]
	if !ok {
		return tracker.Book{}, fmt.Errorf("book %s not found", asin)
	}
	return book, nil
}

// ListBySeries returns the known books of a series in series order.
func (s *EntityStore) ListBySeries(_ context.Context, seriesASIN string) ([]tracker.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []tracker.Book
	for _, book := range s.books {
		if book.SeriesASIN == seriesASIN {
			out = append(out, book)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

// SetReleaseDate fills in a missing release date; set dates never change.
func (s *EntityStore) SetReleaseDate(_ context.Context, asin, releaseDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, ok := s.books[asin]
	if !ok || book.ReleaseDate != nil {
		return nil
	}
	book.ReleaseDate = &releaseDate
	s.books[asin] = book
	return nil
}

// ListBooksForUser returns the books of the user's subscribed series with
// read flags, dated books first.
func (s *EntityStore) ListBooksForUser(_ context.Context, username string) ([]tracker.BookWithReadState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []tracker.BookWithReadState
	for _, book := range s.books {
		if _, subscribed := s.subscriptions[subKey{username: username, seriesASIN: book.SeriesASIN}]; !subscribed {
			continue
		}
		_, read := s.reads[readKey{username: username, bookASIN: book.ASIN}]
		out = append(out, tracker.BookWithReadState{Book: book, Read: read})
	}
	sort.Slice(out, func(i, j int) bool {
		left, right := out[i], out[j]
		switch {
		case left.ReleaseDate == nil && right.ReleaseDate == nil:
			return left.Ordinal < right.Ordinal
		case left.ReleaseDate == nil:
			return false
		case right.ReleaseDate == nil:
			return true
		case *left.ReleaseDate != *right.ReleaseDate:
			return *left.ReleaseDate < *right.ReleaseDate
		default:
			return left.Ordinal < right.Ordinal
		}
	})
	return out, nil
}

// MarkRead records the user's read state for a book.
func (s *EntityStore) MarkRead(_ context.Context, username, bookASIN, readDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads[readKey{username: username, bookASIN: bookASIN}] = readDate
	return nil
}

// MarkUnread clears the user's read state for a book.
func (s *EntityStore) MarkUnread(_ context.Context, username, bookASIN string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reads, readKey{username: username, bookASIN: bookASIN})
	return nil
}
