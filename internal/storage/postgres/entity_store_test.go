package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/book-release-tracker/internal/tracker"
)

func TestSaveSeries_UpsertIgnoresExistingRow(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	mock, store := newMockStore(t, "unused", now)

	mock.ExpectExec(`INSERT INTO series (.+) ON CONFLICT \(asin\) DO NOTHING`).
		WithArgs("B08R69PWNV", "Backyard Starship", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := store.SaveSeries(context.Background(), tracker.Series{
		ASIN:      "B08R69PWNV",
		Name:      "Backyard Starship",
		FirstSeen: now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBook_CarriesNilReleaseDate(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	mock, store := newMockStore(t, "unused", now)

	mock.ExpectExec(`INSERT INTO books (.+) ON CONFLICT \(asin\) DO NOTHING`).
		WithArgs("B0DLX35C16", "B08R69PWNV", 25, "Fist of Orion", "J.N. Chaney", (*string)(nil), now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.SaveBook(context.Background(), tracker.Book{
		ASIN:       "B0DLX35C16",
		SeriesASIN: "B08R69PWNV",
		Ordinal:    25,
		Title:      "Fist of Orion",
		Author:     "J.N. Chaney",
		FirstSeen:  now,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetReleaseDate_OnlyTouchesNullRows(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	mock, store := newMockStore(t, "unused", now)

	mock.ExpectExec(`UPDATE books SET release_date = \$1 WHERE asin = \$2 AND release_date IS NULL`).
		WithArgs("2024-11-10", "B0DLX35C16").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.SetReleaseDate(context.Background(), "B0DLX35C16", "2024-11-10")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSeries_CascadesInOneTransaction(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	mock, store := newMockStore(t, "unused", now)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM reads WHERE book_asin IN`).
		WithArgs("B08R69PWNV").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec(`DELETE FROM books WHERE series_asin = \$1`).
		WithArgs("B08R69PWNV").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(`DELETE FROM subscriptions WHERE series_asin = \$1`).
		WithArgs("B08R69PWNV").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM series WHERE asin = \$1`).
		WithArgs("B08R69PWNV").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	err := store.DeleteSeries(context.Background(), "B08R69PWNV")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscribe_IsIdempotent(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	mock, store := newMockStore(t, "unused", now)

	mock.ExpectExec(`INSERT INTO subscriptions (.+) ON CONFLICT \(username, series_asin\) DO NOTHING`).
		WithArgs("alice", "B08R69PWNV").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := store.Subscribe(context.Background(), "alice", "B08R69PWNV")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
