package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"wikitree/internal/auth"
	"wikitree/internal/domain/models/wiki"
	"wikitree/internal/httputil"
)

// Development identity headers, honoured only when no verifier is configured.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserName  = "X-User-Name"
	HeaderUserAdmin = "X-User-Admin"
)

// AuthMiddleware attaches the request's user to the context. Requests
// without credentials proceed as guests; a bearer token that fails
// verification is rejected with 401.
//
// A nil verifier switches to development mode, where the X-User-* headers
// name the user directly.
func AuthMiddleware(verifier auth.JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				if user := headerUser(r); user != nil {
					r = httputil.WithUser(r, user)
				}
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Debug("rejected bearer token", "path", r.URL.Path, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, httputil.WithUser(r, claims.User()))
		})
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter that browsers use for WebSocket upgrades.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

func headerUser(r *http.Request) *wiki.User {
	id := r.Header.Get(HeaderUserID)
	if id == "" {
		return nil
	}
	name := r.Header.Get(HeaderUserName)
	if name == "" {
		name = id
	}
	admin, _ := strconv.ParseBool(r.Header.Get(HeaderUserAdmin))
	return &wiki.User{ID: id, Username: name, Admin: admin}
}
