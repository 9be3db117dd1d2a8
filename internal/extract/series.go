package extract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/book-release-tracker/internal/tracker"
)

// Stable hooks on the series landing page. Everything inside them is treated
// as drifting markup and goes through StripTags/Sanitize.
const (
	seriesTitleID      = "collection-title"
	seriesItemClass    = "series-childAsin-item"
	seriesOrdinalClass = "series-childAsin-count"
	bookTitleClass     = "itemBookTitle"
	releaseDateClass   = "a-color-success"
	contributorClass   = "series-childAsin-item-details-contributor"
)

// SeriesResult is the commit-ready output of a series page scrape.
type SeriesResult struct {
	Series tracker.Series
	Books  []tracker.Book
}

// Series parses a rendered series landing page into the series record and
// one record per child book. now is recorded as first-seen on every record;
// the stores keep the earliest write.
func Series(pageHTML, seriesASIN string, now time.Time) (SeriesResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return SeriesResult{}, fmt.Errorf("parse series page: %w", err)
	}

	titleSel := doc.Find("#" + seriesTitleID).First()
	if titleSel.Length() == 0 {
		return SeriesResult{}, fmt.Errorf("series title hook #%s not found", seriesTitleID)
	}
	titleHTML, err := titleSel.Html()
	if err != nil {
		return SeriesResult{}, fmt.Errorf("read series title: %w", err)
	}
	name := Sanitize(StripTags(titleHTML))

	var books []tracker.Book
	var itemErr error
	doc.Find("." + seriesItemClass).EachWithBreak(func(i int, item *goquery.Selection) bool {
		book, err := seriesItem(item, seriesASIN, now)
		if err != nil {
			itemErr = fmt.Errorf("series item %d: %w", i, err)
			return false
		}
		books = append(books, book)
		return true
	})
	if itemErr != nil {
		return SeriesResult{}, itemErr
	}

	return SeriesResult{
		Series: tracker.Series{
			ASIN:      seriesASIN,
			Name:      name,
			FirstSeen: now,
		},
		Books: books,
	}, nil
}

func seriesItem(item *goquery.Selection, seriesASIN string, now time.Time) (tracker.Book, error) {
	// A success-styled date label is only rendered for unreleased books; its
	// absence means the book is already out and the date is not on this page.
	var releaseDate *string
	if dateSel := item.Find("." + releaseDateClass).First(); dateSel.Length() > 0 {
		dateHTML, err := dateSel.Html()
		if err != nil {
			return tracker.Book{}, fmt.Errorf("read release date: %w", err)
		}
		parsed, err := ParseReleaseDate(StripTags(dateHTML))
		if err != nil {
			return tracker.Book{}, err
		}
		releaseDate = &parsed
	}

	ordinalSel := item.Find("." + seriesOrdinalClass).First()
	if ordinalSel.Length() == 0 {
		return tracker.Book{}, fmt.Errorf("ordinal hook .%s not found", seriesOrdinalClass)
	}
	ordinalHTML, err := ordinalSel.Html()
	if err != nil {
		return tracker.Book{}, fmt.Errorf("read ordinal: %w", err)
	}
	ordinal, err := strconv.Atoi(Sanitize(StripTags(ordinalHTML)))
	if err != nil {
		return tracker.Book{}, fmt.Errorf("parse ordinal: %w", err)
	}

	titleSel := item.Find("." + bookTitleClass).First()
	if titleSel.Length() == 0 {
		return tracker.Book{}, fmt.Errorf("title hook .%s not found", bookTitleClass)
	}
	titleHTML, err := titleSel.Html()
	if err != nil {
		return tracker.Book{}, fmt.Errorf("read title: %w", err)
	}
	title := Sanitize(StripTags(titleHTML))

	href, ok := titleSel.Attr("href")
	if !ok {
		return tracker.Book{}, fmt.Errorf("title link for %q has no href", title)
	}
	asin := ASINFromHref(Sanitize(href))

	// Contributor fragments arrive with the joining commas already inside
	// them, so each one is sanitized on its own and the list is re-joined.
	var authors []string
	item.Find("." + contributorClass).Each(func(_ int, author *goquery.Selection) {
		authorHTML, htmlErr := author.Html()
		if htmlErr != nil {
			return
		}
		authors = append(authors, Sanitize(StripTags(authorHTML)))
	})

	return tracker.Book{
		ASIN:        asin,
		SeriesASIN:  seriesASIN,
		Ordinal:     ordinal,
		Title:       title,
		Author:      strings.Join(authors, ", "),
		ReleaseDate: releaseDate,
		FirstSeen:   now,
	}, nil
}
