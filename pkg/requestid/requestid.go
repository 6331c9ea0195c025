package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Header is the inbound header honoured by the request id middleware, the id is
// echoed back under the same name.
const Header = "X-Request-Id"

// MaxLength bounds client supplied ids, they end up in logs and in queued job args.
const MaxLength = 128

type requestIDKey struct{}

func Generate() string {
	return uuid.New().String()
}

// Valid accepts ids made of letters, digits and the separators "-_.:".
func Valid(id string) bool {
	if id == "" || len(id) > MaxLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}

func ToContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// FromContext returns an empty string when no id was attached.
func FromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	return requestID
}

func FromRequest(r *http.Request) string {
	return FromContext(r.Context())
}
