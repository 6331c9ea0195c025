package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/openpim/catalog-bulk/pkg/requestid"
)

// RequestID attaches a request id to the context and the response. A well formed
// X-Request-Id from the client wins, then the id chi generated, then a fresh uuid.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := pick(r.Header.Get(requestid.Header), middleware.GetReqID(r.Context()))

		w.Header().Set(requestid.Header, requestID)
		next.ServeHTTP(w, r.WithContext(requestid.ToContext(r.Context(), requestID)))
	})
}

func pick(candidates ...string) string {
	for _, c := range candidates {
		if requestid.Valid(c) {
			return c
		}
	}
	return requestid.Generate()
}
