package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The product page reuses element ids elsewhere, so the details wrapper id is
// the only hook worth trusting. Inside it the data sits in an unannotated
// list: the fourth entry is the publication date, stored in its last span.
const (
	productDetailsID     = "detailBulletsWrapper_feature_div"
	publicationDateIndex = 3
)

// BookReleaseDate parses a rendered book product page and returns the
// publication date as YYYY-MM-DD.
func BookReleaseDate(pageHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return "", fmt.Errorf("parse book page: %w", err)
	}

	section := doc.Find("#" + productDetailsID).First()
	if section.Length() == 0 {
		return "", fmt.Errorf("product details hook #%s not found", productDetailsID)
	}

	items := section.Find("li")
	if items.Length() <= publicationDateIndex {
		return "", fmt.Errorf("product details list has %d entries, want at least %d",
			items.Length(), publicationDateIndex+1)
	}

	spans := items.Eq(publicationDateIndex).Find("span")
	if spans.Length() == 0 {
		return "", fmt.Errorf("publication date span missing")
	}
	dateHTML, err := spans.Eq(spans.Length() - 1).Html()
	if err != nil {
		return "", fmt.Errorf("read publication date: %w", err)
	}

	return ParseReleaseDate(StripTags(dateHTML))
}
