// Package extract turns fetched retailer pages into structured records. It
// owns every CSS/id hook and the text normalization fallbacks, so markup
// drift on the remote side stays contained here and stays testable against
// saved fixtures.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Formatting inside hooked elements (bold spans and so on) changes without
// notice, so instead of chasing it we strip every tag and keep the innermost
// text.
var tagPattern = regexp.MustCompile(`<[^>]+>`)

// StripTags removes all HTML tags from a fragment, keeping the text.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// Sanitize trims whitespace and a trailing comma. The retailer joins
// contributor names with commas placed inside the elements, so stripping one
// trailing comma per fragment lets the caller re-join cleanly.
func Sanitize(s string) string {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimSuffix(trimmed, ",")
	return strings.TrimSpace(trimmed)
}

// ASINFromHref pulls the product identifier out of an item link such as
// "/gp/product/B0DLX35C16?ref_=dbs_m_mng_rwt_calw_tkin_24": everything after
// "?" is dropped and the final path segment is the asin.
func ASINFromHref(href string) string {
	path, _, _ := strings.Cut(href, "?")
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}

// ParseReleaseDate converts a "Month Day, Year" label into YYYY-MM-DD.
// The only sanity checks are day <= 31 and year <= 2100, guards against
// garbled markup producing implausible values. Calendar-invalid dates like
// "February 31" pass through on purpose; the remote pages contain them and
// downstream consumers expect the string as shown.
func ParseReleaseDate(raw string) (string, error) {
	tokens := strings.Fields(raw)
	if len(tokens) != 3 {
		return "", fmt.Errorf("incorrect date %q", raw)
	}

	month, ok := monthNumber(tokens[0])
	if !ok {
		return "", fmt.Errorf("incorrect date %q: unknown month", raw)
	}

	day, err := strconv.Atoi(strings.TrimSuffix(tokens[1], ","))
	if err != nil {
		return "", fmt.Errorf("incorrect date %q: %w", raw, err)
	}
	year, err := strconv.Atoi(tokens[2])
	if err != nil {
		return "", fmt.Errorf("incorrect date %q: %w", raw, err)
	}
	if day > 31 || year > 2100 {
		return "", fmt.Errorf("incorrect date %q", raw)
	}

	return fmt.Sprintf("%d-%02d-%02d", year, month, day), nil
}

// monthNumber resolves an English month name or three-letter abbreviation,
// case-insensitively, to 1..12.
func monthNumber(name string) (int, bool) {
	lower := strings.ToLower(name)
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if lower == full || lower == full[:3] {
			return int(m), true
		}
	}
	return 0, false
}
