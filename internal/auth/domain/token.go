package domain

import "time"

// Token type discriminator carried in the typ claim.
const (
	TokenTypeUser   = "user"
	TokenTypeAPIKey = "api-key"
)

// TokenPair is what the login, MFA exchange, and refresh endpoints return: a
// short-lived access token (JWT) plus an opaque refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // "Bearer"
	ExpiresIn    int64  `json:"expires_in"`           // seconds until access token expiry
}

// RefreshToken models the stored refresh token record. Only the SHA-256
// fingerprint of the opaque value is persisted.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // base64url SHA-256 of the opaque token
	SessionID string // session the token renews; stable across rotations
	Scopes    []string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccessTokenParsed is the verifier's output once a bearer token has passed
// signature, expiry, and liveness checks. Type is TokenTypeUser or
// TokenTypeAPIKey; SessionID is empty for API keys, which have no session.
type AccessTokenParsed struct {
	UserID    string
	Scopes    []string
	Type      string
	SessionID string
	Role      string
}
