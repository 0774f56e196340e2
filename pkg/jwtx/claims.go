// Package jwtx signs and verifies the service's access tokens. All tokens are
// Ed25519 (EdDSA) JWTs carrying the session id, granted scope patterns, and a
// token type discriminator so resource servers can tell user sessions from
// API keys.
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type values for the "typ" custom claim.
const (
	// TokenTypeUser marks a token minted for an interactive login session.
	// These tokens carry a session id and are subject to session revocation.
	TokenTypeUser = "user"

	// TokenTypeAPIKey marks a long-lived service token. API keys carry no
	// session id; revocation goes through the api_keys store instead.
	TokenTypeAPIKey = "api-key"
)

// Default token TTLs. Short access tokens, week-long refresh chains.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Claims are the access-token claims shared by every consumer of the auth
// service. Changes must stay additive to keep old tokens parseable.
type Claims struct {
	jwt.RegisteredClaims

	// SID is the session id this token is bound to. Empty for API keys.
	SID string `json:"sid,omitempty"`

	// Scopes are the granted scope patterns, e.g.
	// "group-{groupId}:write-source-*" resolved per request by the matcher.
	Scopes []string `json:"scopes,omitempty"`

	// Role is an optional coarse role tag ("user", "sudo"). Role shortcuts
	// are evaluated before scope matching, never inside it.
	Role string `json:"role,omitempty"`

	// TokenType discriminates user-session tokens from API keys.
	TokenType string `json:"typ,omitempty"`
}

// NewAccessClaims builds claims for a user-session access token.
func NewAccessClaims(subject, sid string, scopes []string, role string, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		SID:       sid,
		Scopes:    scopes,
		Role:      role,
		TokenType: TokenTypeUser,
	}
}

// NewAPIKeyClaims builds claims for an API-key token. The jti doubles as the
// api_keys record id so verification can check revocation.
func NewAPIKeyClaims(subject, keyID string, scopes []string, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        keyID,
		},
		Scopes:    scopes,
		TokenType: TokenTypeAPIKey,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks the iss claim against the expected value.
// Empty expected means nothing to enforce.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected != "" && c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiry ensures the token is inside its [nbf, exp] window.
func (c *Claims) ValidateExpiry() error {
	return c.ValidateExpiryWithLeeway(0)
}

// ValidateExpiryWithLeeway allows a grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
