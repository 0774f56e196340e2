package domain

import "time"

// MFA methods a user can require at login. NONE skips the second factor.
const (
	MFANone  = "NONE"
	MFASMS   = "SMS"
	MFATOTP  = "TOTP"
	MFAEmail = "EMAIL"
)

// Roles. Sudo bypasses scope matching entirely.
const (
	RoleUser = "user"
	RoleSudo = "sudo"
)

type User struct {
	ID           string
	Email        string
	Phone        string // E.164, required before enabling SMS MFA
	PasswordHash string // argon2id encoded
	Role         string
	Scopes       []string
	MFAMethod    string     // MFANone unless the user enabled a factor
	TOTPSecret   *string    // base32, nullable until TOTP is activated
	TOTPPending  *string    // base32, set during enrollment before activation
	MFAEnabledAt *time.Time // when the current factor was activated
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MFARequired reports whether login must go through the MFA exchange.
func (u User) MFARequired() bool {
	return u.MFAMethod != "" && u.MFAMethod != MFANone
}
