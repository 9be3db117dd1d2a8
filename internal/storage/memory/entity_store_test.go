package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/book-release-tracker/internal/tracker"
)

func TestSaveSeries_InsertIfAbsent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewEntityStore()
	seen := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveSeries(ctx, tracker.Series{ASIN: "B08R69PWNV", Name: "Backyard Starship", FirstSeen: seen}))
	require.NoError(t, store.SaveSeries(ctx, tracker.Series{ASIN: "B08R69PWNV", Name: "Renamed", FirstSeen: seen.Add(time.Hour)}))

	got, err := store.GetSeries(ctx, "B08R69PWNV")
	require.NoError(t, err)
	require.Equal(t, "Backyard Starship", got.Name)
	require.Equal(t, seen, got.FirstSeen)
}

func TestSetReleaseDate_OnlyFillsMissingDate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewEntityStore()
	require.NoError(t, store.SaveBook(ctx, tracker.Book{
		ASIN:       "B0DLX35C16",
		SeriesASIN: "B08R69PWNV",
		Ordinal:    25,
		Title:      "Fist of Orion",
	}))

	require.NoError(t, store.SetReleaseDate(ctx, "B0DLX35C16", "2024-11-10"))
	got, err := store.GetBook(ctx, "B0DLX35C16")
	require.NoError(t, err)
	require.NotNil(t, got.ReleaseDate)
	require.Equal(t, "2024-11-10", *got.ReleaseDate)

	// Announced dates slip; a second pass must not overwrite the committed one.
	require.NoError(t, store.SetReleaseDate(ctx, "B0DLX35C16", "2025-01-01"))
	got, err = store.GetBook(ctx, "B0DLX35C16")
	require.NoError(t, err)
	require.Equal(t, "2024-11-10", *got.ReleaseDate)
}

func TestListBooksForUser_OrdersByReleaseDateThenOrdinal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewEntityStore()
	require.NoError(t, store.SaveSeries(ctx, tracker.Series{ASIN: "B08R69PWNV", Name: "Backyard Starship"}))
	require.NoError(t, store.Subscribe(ctx, "alice", "B08R69PWNV"))

	early := "2021-09-19"
	late := "2024-11-10"
	require.NoError(t, store.SaveBook(ctx, tracker.Book{ASIN: "B000000003", SeriesASIN: "B08R69PWNV", Ordinal: 3}))
	require.NoError(t, store.SaveBook(ctx, tracker.Book{ASIN: "B000000001", SeriesASIN: "B08R69PWNV", Ordinal: 1, ReleaseDate: &late}))
	require.NoError(t, store.SaveBook(ctx, tracker.Book{ASIN: "B000000002", SeriesASIN: "B08R69PWNV", Ordinal: 2, ReleaseDate: &early}))
	require.NoError(t, store.MarkRead(ctx, "alice", "B000000002", "2026-01-15"))

	books, err := store.ListBooksForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, books, 3)
	require.Equal(t, "B000000002", books[0].ASIN)
	require.True(t, books[0].Read)
	require.Equal(t, "B000000001", books[1].ASIN)
	// Undated books sort last.
	require.Equal(t, "B000000003", books[2].ASIN)
	require.False(t, books[2].Read)
}

func TestDeleteSeries_RemovesBooksAndSubscriptions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewEntityStore()
	require.NoError(t, store.SaveSeries(ctx, tracker.Series{ASIN: "B08R69PWNV", Name: "Backyard Starship"}))
	require.NoError(t, store.SaveBook(ctx, tracker.Book{ASIN: "B000000001", SeriesASIN: "B08R69PWNV", Ordinal: 1}))
	require.NoError(t, store.Subscribe(ctx, "alice", "B08R69PWNV"))
	require.NoError(t, store.MarkRead(ctx, "alice", "B000000001", "2026-01-15"))

	require.NoError(t, store.DeleteSeries(ctx, "B08R69PWNV"))

	_, err := store.GetSeries(ctx, "B08R69PWNV")
	require.Error(t, err)

	books, err := store.ListBySeries(ctx, "B08R69PWNV")
	require.NoError(t, err)
	require.Empty(t, books)

	forUser, err := store.ListBooksForUser(ctx, "alice")
	require.NoError(t, err)
	require.Empty(t, forUser)
}
