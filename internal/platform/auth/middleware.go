package auth

import (
	"net/http"
	"strings"

	"github.com/assetdeck/api/internal/domain"
	"github.com/assetdeck/api/internal/platform/httpx"
)

// TokenVerifier validates bearer tokens and returns the caller identity.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// RequireAuth rejects requests without a valid bearer token and attaches the
// verified identity to the request context.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthorized", "missing bearer token", http.StatusUnauthorized))
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthorized", "invalid or expired token", http.StatusUnauthorized))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole rejects authenticated requests whose identity lacks the role.
// Admins pass every role check.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
				return
			}
			if !roleSatisfies(identity.Role, role) {
				httpx.WriteError(r.Context(), w, httpx.NewError("forbidden", "insufficient privileges", http.StatusForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func roleSatisfies(have, want domain.Role) bool {
	if have == domain.RoleAdmin {
		return true
	}
	if want == domain.RoleModerator {
		return have == domain.RoleModerator
	}
	return have == want
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
