package domain

import "time"

// APIKey is a long-lived machine credential. The JWT's jti points at this
// record so revocation can be checked on every verify; there is no session.
type APIKey struct {
	ID        string
	UserID    string
	Name      string
	Scopes    []string
	ExpiresAt *time.Time // nil means no expiry beyond the JWT's own exp
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Revoked reports whether the key has been withdrawn.
func (k APIKey) Revoked() bool {
	return k.RevokedAt != nil
}
