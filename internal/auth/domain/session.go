package domain

import "time"

// Session is one authenticated device/browser. Revocation here is
// authoritative: an unexpired access token bound to a revoked session is
// rejected.
type Session struct {
	ID         string
	UserID     string
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
	LastUsedAt time.Time
	RevokedAt  *time.Time
}

// Revoked reports whether the session has been terminated.
func (s Session) Revoked() bool {
	return s.RevokedAt != nil
}
