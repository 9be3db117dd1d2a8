package tracker

import (
	"fmt"
	"regexp"
)

// Retailer product identifiers are ten characters: a literal B followed by
// nine uppercase alphanumerics.
var asinPattern = regexp.MustCompile(`^B[A-Z0-9]{9}$`)

// ValidateASIN rejects malformed product identifiers before any remote call
// or row is created on their behalf.
func ValidateASIN(asin string) error {
	if !asinPattern.MatchString(asin) {
		return fmt.Errorf("string does not look like an asin: %q", asin)
	}
	return nil
}
