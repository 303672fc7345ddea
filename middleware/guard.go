package middleware

import (
	"context"
	"net/http"
	"strings"

	sessiongate "github.com/calebforth/sessiongate"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity the guard attached to the
// request context.
func IdentityFromContext(ctx context.Context) (*sessiongate.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*sessiongate.Identity)
	return identity, ok
}

// Guard authenticates the bearer access credential on every request and
// rejects with 401 when the credential or its backing session is invalid.
func Guard(engine *sessiongate.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := sessiongate.WithClientIP(r.Context(), clientIP(r))
			ctx = sessiongate.WithUserAgent(ctx, r.UserAgent())

			identity, err := engine.Authenticate(ctx, token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx = context.WithValue(ctx, identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
