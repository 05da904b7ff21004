// Package auth provides JWT-based authentication for auditrail-engine.
// It validates tokens issued by the configured identity provider using JWKS
// endpoints and binds the token subject as the acting identity for audits.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing JWT claims.
	ClaimsKey contextKey = "claims"
	// TokenKey is the context key for storing the raw JWT token string.
	TokenKey contextKey = "token"
)

// Claims represents the JWT claims structure accepted by the engine.
// It embeds RegisteredClaims for standard JWT fields (sub, iss, exp, etc.)
// and adds custom claims for actor attribution. The subject must be the
// acting principal's UUID.
type Claims struct {
	jwt.RegisteredClaims
	Source string   `json:"src,omitempty"`   // How the caller reached the engine (api, console, job)
	Email  string   `json:"email,omitempty"` // User email address
	Roles  []string `json:"roles,omitempty"` // Caller roles, informational only
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// GetToken retrieves the raw JWT token string from the request context.
// Returns empty string and false if token is not present.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}
