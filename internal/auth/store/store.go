package store

import (
	"context"
	"errors"

	"github.com/lanternhq/lantern/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers implement this.
// Sub-repositories keep concerns tidy and make it obvious when a caller is
// about to nest transactions.
type Store interface {
	Users() Users
	Sessions() Sessions
	RefreshTokens() RefreshTokens
	MFATokens() MFATokens
	APIKeys() APIKeys

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn inside a transaction, committing on nil and rolling
	// back on error. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Same repos, plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// UpdateScopes replaces the user's granted scope patterns.
	UpdateScopes(ctx context.Context, userID string, scopes []string) error

	// SetPendingTOTPSecret stages a TOTP secret during enrollment.
	SetPendingTOTPSecret(ctx context.Context, userID string, secret string) error

	// ActivateTOTP promotes the pending secret and sets mfa_method=TOTP.
	ActivateTOTP(ctx context.Context, userID string) error

	// SetMFAMethod switches the active factor (NONE disables MFA and
	// clears any TOTP secrets).
	SetMFAMethod(ctx context.Context, userID string, method string) error

	// DeleteUser cascades to sessions, refresh_tokens, mfa_tokens and
	// api_keys (per schema).
	DeleteUser(ctx context.Context, userID string) error
}

type Sessions interface {
	// CreateSession inserts a new session row.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByID returns the session, revoked or not; the caller
	// decides what revocation means.
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// ListUserSessions returns the user's non-revoked sessions, newest
	// first.
	ListUserSessions(ctx context.Context, userID string) ([]domain.Session, error)

	// TouchSession bumps last_used_at.
	TouchSession(ctx context.Context, id string) error

	// RevokeSession sets revoked_at; revoking twice is a no-op.
	RevokeSession(ctx context.Context, id string) error

	// RevokeAllUserSessions terminates every live session for the user and
	// returns how many were revoked.
	RevokeAllUserSessions(ctx context.Context, userID string) (int64, error)

	// DeleteRevokedSessionsBefore is housekeeping for long-revoked rows.
	DeleteRevokedSessionsBefore(ctx context.Context, cutoff int64) error
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the token by its SHA-256 fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked=1, sets updated_at.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// RevokeSessionRefreshTokens revokes every token bound to a session.
	RevokeSessionRefreshTokens(ctx context.Context, sessionID string) error

	// RevokeAllUserRefreshTokens is bulk revocation, e.g. password reset.
	RevokeAllUserRefreshTokens(ctx context.Context, userID string) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type MFATokens interface {
	// CreateMFAToken stores a freshly minted challenge.
	CreateMFAToken(ctx context.Context, t domain.MFAToken) error

	// GetMFAToken fetches a challenge by id regardless of state; callers
	// check expiry and consumption so each failure maps to its own error.
	GetMFAToken(ctx context.Context, id string) (domain.MFAToken, error)

	// IncrementMFAAttempts bumps the failed attempt counter and returns
	// the new count.
	IncrementMFAAttempts(ctx context.Context, id string) (int, error)

	// ConsumeMFAToken marks the challenge consumed if and only if it has
	// not been consumed yet. Returns ErrNotFound when the conditional
	// update matches no row, which makes double exchange detectable under
	// concurrency.
	ConsumeMFAToken(ctx context.Context, id string) error

	// DeleteMFAToken removes a challenge (attempt ceiling or explicit
	// invalidation).
	DeleteMFAToken(ctx context.Context, id string) error

	// DeleteExpiredMFATokens is housekeeping.
	DeleteExpiredMFATokens(ctx context.Context) error
}

type APIKeys interface {
	// CreateAPIKey stores the key record backing a minted api-key JWT.
	CreateAPIKey(ctx context.Context, k domain.APIKey) error

	// GetAPIKeyByID fetches a key, revoked or not.
	GetAPIKeyByID(ctx context.Context, id string) (domain.APIKey, error)

	// ListUserAPIKeys returns the user's keys, newest first.
	ListUserAPIKeys(ctx context.Context, userID string) ([]domain.APIKey, error)

	// RevokeAPIKey sets revoked_at.
	RevokeAPIKey(ctx context.Context, id string) error
}
