package auth

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// HeaderAuthenticator trusts the user name set by an authenticating proxy.
type HeaderAuthenticator struct {
	header string
}

func NewHeaderAuthenticator(header string) (*HeaderAuthenticator, error) {
	if strings.TrimSpace(header) == "" {
		return nil, fmt.Errorf("user header is required for header authentication")
	}
	return &HeaderAuthenticator{header: header}, nil
}

func (h *HeaderAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimSpace(r.Header.Get(h.header))
		if username == "" {
			zap.S().Named("auth").Debugw("request without user header", "path", r.URL.Path)
			http.Error(w, "Authentication failed", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), username)))
	})
}
