package middleware

import (
	"context"
	"net/http"

	"github.com/lildude/fittrack/internal/sessions"
)

type contextKey string

// UserIDKey is the request-context key under which the authenticated user id
// is stored.
const UserIDKey contextKey = "userID"

// RequireAuthentication resolves the authenticated user and stores their id
// in the request context. Requests without a valid session are rejected; the
// session protocol itself is handled by the auth boundary, not here.
func RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := sessions.UserID(r)
		if userID == "" {
			http.Error(w, `{"success":false,"error":"authentication required"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID extracts the authenticated user id placed in the context by
// RequireAuthentication.
func UserID(r *http.Request) string {
	id, _ := r.Context().Value(UserIDKey).(string)
	return id
}
