package sqlite

import (
	"context"
	"time"

	"github.com/lanternhq/lantern/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	now := time.Now()
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, session_id, scopes,
			expires_at, revoked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, t.SessionID, joinScopes(t.Scopes),
		toUnix(t.ExpiresAt), t.Revoked, toUnix(createdAt), toUnix(now))
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var (
		t         domain.RefreshToken
		scopes    string
		expiresAt int64
		createdAt int64
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, session_id, scopes, expires_at, revoked, created_at, updated_at
		FROM refresh_tokens WHERE token_hash = ?`, hash).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.SessionID, &scopes,
			&expiresAt, &t.Revoked, &createdAt, &updatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.Scopes = splitScopes(scopes)
	t.ExpiresAt = fromUnix(expiresAt)
	t.CreatedAt = fromUnix(createdAt)
	t.UpdatedAt = fromUnix(updatedAt)
	return t, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1, updated_at = ? WHERE token_hash = ?`,
		toUnix(time.Now()), hash)
	return err
}

func (r *refreshTokensRepo) RevokeSessionRefreshTokens(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1, updated_at = ?
		WHERE session_id = ? AND revoked = 0`,
		toUnix(time.Now()), sessionID)
	return err
}

func (r *refreshTokensRepo) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1, updated_at = ?
		WHERE user_id = ? AND revoked = 0`,
		toUnix(time.Now()), userID)
	return err
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < ?`, toUnix(time.Now()))
	return err
}
