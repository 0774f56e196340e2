package domain

import "time"

// MFAChallenge is returned instead of a TokenPair when the user has a second
// factor enabled. The client exchanges MFAToken plus a code for the pair.
type MFAChallenge struct {
	MFARequired bool   `json:"multi_factor_required"` // always true
	MFAToken    string `json:"totp_token"`
	Method      string `json:"type"` // SMS, TOTP or EMAIL
}

// MFAToken is a pending second-factor exchange. One-shot: ConsumedAt is set
// atomically on the first successful exchange, and the row is deleted once
// Attempts reaches the brute-force ceiling.
type MFAToken struct {
	ID         string // the opaque token handed to the client
	UserID     string
	Method     string
	CodeHash   string // fingerprint of the delivered code; empty for TOTP
	SessionID  string // session the eventual token pair will be bound to
	Attempts   int
	ConsumedAt *time.Time
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Consumed reports whether the token was already exchanged.
func (t MFAToken) Consumed() bool {
	return t.ConsumedAt != nil
}

// MFAEnrollment is returned when a user begins TOTP enrollment.
type MFAEnrollment struct {
	Secret string `json:"secret"` // base32
	URL    string `json:"url"`    // otpauth:// URL for QR rendering
}
