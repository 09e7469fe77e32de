// Package auth decodes session claims from access tokens. Tokens are issued
// and validated by the product backend; the shell treats them as trusted and
// only reads claims, so no signature verification happens here.
package auth

import (
	"strings"
	"time"

	"github.com/CairnApp/shellsync/errors"
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims the shell reads from an access token.
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// DecodeSessionClaims parses the claims of an access token without verifying
// its signature.
func DecodeSessionClaims(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, errors.ParseFailed(err, "failed to decode access token claims")
	}
	return claims, nil
}

// IsExpired reports whether the claims carry an expiry in the past. Tokens
// without an exp claim are treated as unexpired.
func (c *SessionClaims) IsExpired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return c.ExpiresAt.Before(now)
}

// UserID returns the subject claim.
func (c *SessionClaims) UserID() string {
	return c.Subject
}

// LooksLikeJWT reports whether a raw token is structurally a three-part
// dot-delimited credential. It exists only for the legacy bridge fallback
// path where messages lack a tokenType discriminant.
func LooksLikeJWT(token string) bool {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}
