package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/campushq/docqa/internal/api"
	"github.com/campushq/docqa/internal/domain"
)

type contextKey string

const IdentityKey contextKey = "identity"

// IdentityVerifier resolves a bearer token to a verified identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Identity, error)
}

// Authenticate verifies the Authorization header and stores the resulting
// identity in the request context.
func Authenticate(verifier IdentityVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid identity token")
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, *id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUploadRole rejects callers whose role may not upload documents.
// Must run after Authenticate.
func RequireUploadRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetIdentity(r.Context())
		if !ok {
			api.Error(w, http.StatusUnauthorized, "missing identity")
			return
		}
		if !id.Role.CanUpload() {
			api.Error(w, http.StatusForbidden, "role not permitted to upload documents")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetIdentity returns the verified identity from context.
func GetIdentity(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(domain.Identity)
	return id, ok
}
