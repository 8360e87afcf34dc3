package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// Danish listings format numbers with dots as thousand separators and
// suffix units, e.g. "149.900 kr." or "86.000 km".
var (
	numberRe = regexp.MustCompile(`[\d.,]+`)
	yearRe   = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	wsRe     = regexp.MustCompile(`\s+`)
)

const (
	minPlausibleYear = 1980
	maxPlausibleYear = 2030
	maxPlausibleKm   = 2_000_000
)

// ExtractPrice parses a price in whole DKK from free text. Returns nil
// when no usable number is present.
func ExtractPrice(text string) *int64 {
	n, ok := parseNumber(text)
	if !ok || n < 0 {
		return nil
	}
	return &n
}

// ExtractYear finds the first four digit year in the text and keeps it
// only when it falls in a plausible first-registration range.
func ExtractYear(text string) *int {
	m := yearRe.FindString(text)
	if m == "" {
		return nil
	}
	y, err := strconv.Atoi(m)
	if err != nil || y < minPlausibleYear || y > maxPlausibleYear {
		return nil
	}
	return &y
}

// ExtractKilometers parses an odometer reading from free text, rejecting
// values outside the plausible range for a used car.
func ExtractKilometers(text string) *int64 {
	n, ok := parseNumber(text)
	if !ok || n < 0 || n > maxPlausibleKm {
		return nil
	}
	return &n
}

// parseNumber pulls the first digit group out of the text and strips the
// Danish thousand separators.
func parseNumber(text string) (int64, bool) {
	m := numberRe.FindString(text)
	if m == "" {
		return 0, false
	}
	m = strings.NewReplacer(".", "", ",", "").Replace(m)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CleanText collapses runs of whitespace and trims the ends.
func CleanText(text string) string {
	return strings.TrimSpace(wsRe.ReplaceAllString(text, " "))
}
