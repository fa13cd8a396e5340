package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/mapharvest/harvester/pkg/requestid"
)

// RequestID takes the id from the X-Request-Id header, then from chi's own
// RequestID middleware, and generates one otherwise. Caller ids that are not
// safe to log are replaced. The id is echoed back in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := requestid.Accept(r.Header.Get(requestid.Header))
		if requestID == "" {
			requestID = middleware.GetReqID(r.Context())
		}
		if requestID == "" {
			requestID = requestid.Generate()
		}

		w.Header().Set(requestid.Header, requestID)
		next.ServeHTTP(w, r.WithContext(requestid.ToContext(r.Context(), requestID)))
	})
}
