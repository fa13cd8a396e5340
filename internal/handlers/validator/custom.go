package validator

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/mapharvest/harvester/api/v1alpha1"
)

const maxQueryLength = 256

// queryValidator accepts printable, non-blank search text of bounded length.
func queryValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	val = strings.TrimSpace(val)
	if val == "" || utf8.RuneCountInString(val) > maxQueryLength {
		return false
	}

	for _, r := range val {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

func scrapeLogStatusValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	switch v1alpha1.ScrapeLogStatus(val) {
	case v1alpha1.ScrapeLogStatusPending,
		v1alpha1.ScrapeLogStatusInProgress,
		v1alpha1.ScrapeLogStatusCompleted,
		v1alpha1.ScrapeLogStatusFailed:
		return true
	default:
		return false
	}
}
