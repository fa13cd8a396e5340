// Package requestid carries the id correlating one API call across the
// server logs, the scrape job it starts and the CLI client that issued it.
package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header carries the id on requests and responses.
const Header = "X-Request-Id"

const maxLength = 128

type ctxKey struct{}

func Generate() string {
	return uuid.NewString()
}

// Accept returns id when it is safe to echo and log, and "" otherwise.
// Only letters, digits, '-', '_', '.' and ':' are allowed.
func Accept(id string) string {
	if id == "" || len(id) > maxLength {
		return ""
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.', r == ':':
		default:
			return ""
		}
	}
	return id
}

func ToContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns "" outside a request.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func FromRequest(r *http.Request) string {
	return FromContext(r.Context())
}

// Propagate copies the id of ctx, if any, onto an outgoing request.
func Propagate(ctx context.Context, h http.Header) {
	if id := FromContext(ctx); id != "" {
		h.Set(Header, id)
	}
}
