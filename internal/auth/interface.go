package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"

	"wikitree/internal/domain/models/wiki"
)

// RoleAdmin is the role claim granting wiki administration.
const RoleAdmin = "admin"

// JWTVerifier defines the interface for JWT token verification.
// This abstraction keeps the middleware agnostic to the verification details.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns an error if the token is invalid, expired, or has an invalid signature.
	VerifyToken(tokenString string) (*Claims, error)

	// Close releases any resources held by the verifier.
	Close() error
}

// Claims are the token claims the wiki reads.
type Claims struct {
	jwt.RegisteredClaims
	Username string   `json:"preferred_username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// User maps the claims onto a viewer. The username falls back to the email
// and then the subject.
func (c *Claims) User() *wiki.User {
	name := c.Username
	if name == "" {
		name = c.Email
	}
	if name == "" {
		name = c.Subject
	}
	return &wiki.User{
		ID:       c.Subject,
		Username: name,
		Admin:    slices.Contains(c.Roles, RoleAdmin),
	}
}
