package middleware

import (
	"context"
	"net/http"

	pkghttp "github.com/mkowalczyk/authguard/pkg/http"
)

// SessionChecker reports whether a live authenticated session exists.
type SessionChecker interface {
	IsAuthenticated(ctx context.Context) bool
}

// RequireSession rejects requests when no live session is held. The check is
// fail-closed: an errored session query counts as unauthenticated.
func RequireSession(checker SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !checker.IsAuthenticated(r.Context()) {
				pkghttp.WriteUnauthorized(w, "Authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
