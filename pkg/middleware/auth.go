package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vaultgate/vaultgate/pkg/auth"
	"github.com/vaultgate/vaultgate/pkg/contextkeys"
	"github.com/vaultgate/vaultgate/pkg/httputil"
)

// TokenAuthenticator resolves an opaque token to a principal
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// extractToken pulls the token from the Authorization header. Both
// "Token <value>" and "Bearer <value>" schemes are accepted.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	for _, scheme := range []string{"Token ", "Bearer "} {
		if strings.HasPrefix(header, scheme) {
			return strings.TrimSpace(strings.TrimPrefix(header, scheme))
		}
	}
	return ""
}

// Authentication rejects requests without a valid token and stores the
// principal in the request context.
func Authentication(authenticator TokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				httputil.WriteUnauthorized(w, "Authentication credentials were not provided")
				return
			}

			principal, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				httputil.WriteUnauthorized(w, "Invalid token")
				return
			}

			ctx := contextkeys.WithValue(r.Context(), contextkeys.PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFrom returns the authenticated principal stored by Authentication
func PrincipalFrom(ctx context.Context) (*auth.Principal, bool) {
	principal, ok := contextkeys.Value(ctx, contextkeys.PrincipalKey).(*auth.Principal)
	return principal, ok
}
