package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/obada/child-profiles-backend/internal/models"
)

// ChildKey is the request-context key under which the guard stores the
// resolved profile.
const ChildKey = "child"

// TokenVerifier verifies a bearer token and returns the subject id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// ChildResolver resolves a subject id to its profile.
type ChildResolver interface {
	Resolve(ctx context.Context, id string) (*models.Child, error)
}

// RequireAuth validates the Authorization bearer token, re-resolves the
// subject profile and injects it into the request context. A profile deleted
// after the token was issued fails resolution here, which is what invalidates
// its outstanding tokens.
func RequireAuth(codec TokenVerifier, children ChildResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				reject(w, "you are not logged in, please log in to get access")
				return
			}

			id, err := codec.Verify(token)
			if err != nil {
				log.Printf("token verify failed: %v", err)
				reject(w, "invalid or expired token, please log in again")
				return
			}

			child, err := children.Resolve(r.Context(), id)
			if err != nil || child == nil {
				reject(w, "the profile belonging to this token no longer exists")
				return
			}

			ctx := context.WithValue(r.Context(), ChildKey, child)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ChildFromContext returns the profile the guard attached, or nil on
// unguarded routes.
func ChildFromContext(ctx context.Context) *models.Child {
	child, _ := ctx.Value(ChildKey).(*models.Child)
	return child
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func reject(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"status":"fail","message":"` + message + `"}`))
}
