package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/sakif/easychef/internal/repository"
)

type contextKey struct{}

var userIDKey = contextKey{}

// WithUserID returns a copy of ctx carrying the signed-in user's id.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext returns the id stored by RequireSession.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// RequireSession rejects the request with 401 unless the store holds a
// session, and passes the session's user id down through the context.
//
// The check reads the local session only, so it costs no round trip.
func RequireSession(sessions repository.AuthRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := sessions.CurrentUser(r.Context())
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"not signed in"}` + "\n"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}
