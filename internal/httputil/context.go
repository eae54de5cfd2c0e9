package httputil

import (
	"context"
	"net/http"

	"wikitree/internal/domain/models/wiki"
)

// Context key type to avoid collisions
type contextKey string

const (
	userKey contextKey = "user"
)

// WithUser adds the authenticated user to the request context
func WithUser(r *http.Request, user *wiki.User) *http.Request {
	ctx := context.WithValue(r.Context(), userKey, user)
	return r.WithContext(ctx)
}

// GetUser retrieves the user from context, returns nil for guests
func GetUser(r *http.Request) *wiki.User {
	user, _ := r.Context().Value(userKey).(*wiki.User)
	return user
}

// GetUserID returns the authenticated user's id, or empty string for guests
func GetUserID(r *http.Request) string {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return ""
}
