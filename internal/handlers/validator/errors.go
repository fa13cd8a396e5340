package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ErrInvalidField struct {
	error
}

func NewErrInvalidField(format string, args ...any) *ErrInvalidField {
	return &ErrInvalidField{fmt.Errorf(format, args...)}
}

// toFieldError turns validator output into one readable message per field.
func toFieldError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		switch fe.Tag() {
		case "query":
			messages = append(messages, fmt.Sprintf("%s must be non-empty printable text of at most %d characters", fe.Field(), maxQueryLength))
		case "min", "max":
			messages = append(messages, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return NewErrInvalidField("%s", strings.Join(messages, "; "))
}
