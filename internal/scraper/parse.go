package scraper

import (
	"strconv"
	"strings"
	"unicode"
)

// cleanCardText drops the parentheses wrapping review counts and trims space.
func cleanCardText(s string) string {
	return strings.TrimSpace(strings.NewReplacer("(", "", ")", "").Replace(s))
}

// parseRating reads a decimal rating written with either decimal separator.
// Absent or unparsable text yields nil.
func parseRating(s string) *float64 {
	s = strings.ReplaceAll(cleanCardText(s), ",", ".")
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseReviews keeps the digits of a review count so grouping separators
// ("1,234" or "1.234") are ignored. Text without digits yields nil.
func parseReviews(s string) *int {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return nil
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &v
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// stripLabel removes a "Label:" prefix from an accessible label.
func stripLabel(value, label string) string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, label)
	value = strings.TrimPrefix(strings.TrimSpace(value), ":")
	return strings.TrimSpace(value)
}
