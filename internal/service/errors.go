package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrInvalidRequest struct {
	error
}

func NewErrInvalidRequest(message string) *ErrInvalidRequest {
	return &ErrInvalidRequest{fmt.Errorf("bad request: %s", message)}
}

func NewErrEmptyQuery() *ErrInvalidRequest {
	return NewErrInvalidRequest("query is required")
}

func NewErrInvalidCap(limit, maxCap int) *ErrInvalidRequest {
	return NewErrInvalidRequest(fmt.Sprintf("cap %d is outside [1, %d]", limit, maxCap))
}

// ErrScrapeFailed is the single failure surfaced for a scrape run. The cause
// stays reachable through errors.Unwrap.
type ErrScrapeFailed struct {
	Query string
	cause error
}

func NewErrScrapeFailed(query string, cause error) *ErrScrapeFailed {
	return &ErrScrapeFailed{Query: query, cause: cause}
}

func (e *ErrScrapeFailed) Error() string {
	return fmt.Sprintf("scrape failed for %q: %s", e.Query, e.cause)
}

func (e *ErrScrapeFailed) Unwrap() error {
	return e.cause
}

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrScrapeJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "scrape job")
}
