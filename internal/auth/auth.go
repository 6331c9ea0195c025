package auth

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/openpim/catalog-bulk/internal/config"
)

type Authenticator interface {
	Authenticator(next http.Handler) http.Handler
}

const (
	HeaderAuthentication string = "header"
	NoneAuthentication   string = "none"
)

func NewAuthenticator(authConfig config.Auth) (Authenticator, error) {
	switch authConfig.AuthenticationType {
	case HeaderAuthentication:
		zap.S().Named("auth").Infow("owner taken from upstream header", "header", authConfig.UserHeader)
		return NewHeaderAuthenticator(authConfig.UserHeader)
	case NoneAuthentication, "":
		zap.S().Named("auth").Info("authentication disabled, jobs and templates are shared")
		return anonymous{}, nil
	default:
		return nil, fmt.Errorf("unknown authentication type %q", authConfig.AuthenticationType)
	}
}

// anonymous attaches no owner, so everything created through it is shared.
type anonymous struct{}

func (anonymous) Authenticator(next http.Handler) http.Handler {
	return next
}

type ownerKey struct{}

// WithOwner scopes ctx to owner. Jobs and private mapping templates created under
// it carry the owner and listings only show the owner's records plus shared ones.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFromContext is empty for anonymous callers.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}
