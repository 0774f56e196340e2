package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lanternhq/lantern/internal/auth/domain"
)

type mfaTokensRepo struct {
	db dbtx
}

func (r *mfaTokensRepo) CreateMFAToken(ctx context.Context, t domain.MFAToken) error {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mfa_tokens (id, user_id, method, code_hash, session_id,
			attempts, consumed_at, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Method, t.CodeHash, t.SessionID,
		t.Attempts, toUnixPtr(t.ConsumedAt), toUnix(t.ExpiresAt), toUnix(createdAt))
	return err
}

func (r *mfaTokensRepo) GetMFAToken(ctx context.Context, id string) (domain.MFAToken, error) {
	var (
		t          domain.MFAToken
		consumedAt sql.NullInt64
		expiresAt  int64
		createdAt  int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, method, code_hash, session_id, attempts, consumed_at, expires_at, created_at
		FROM mfa_tokens WHERE id = ?`, id).
		Scan(&t.ID, &t.UserID, &t.Method, &t.CodeHash, &t.SessionID,
			&t.Attempts, &consumedAt, &expiresAt, &createdAt)
	if err != nil {
		return domain.MFAToken{}, mapNotFound(err)
	}
	t.ConsumedAt = fromUnixPtr(consumedAt)
	t.ExpiresAt = fromUnix(expiresAt)
	t.CreatedAt = fromUnix(createdAt)
	return t, nil
}

func (r *mfaTokensRepo) IncrementMFAAttempts(ctx context.Context, id string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE mfa_tokens SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, mapNotFound(sql.ErrNoRows)
	}

	var attempts int
	err = r.db.QueryRowContext(ctx,
		`SELECT attempts FROM mfa_tokens WHERE id = ?`, id).Scan(&attempts)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return attempts, nil
}

// ConsumeMFAToken is a conditional update so concurrent exchanges of the
// same challenge cannot both succeed.
func (r *mfaTokensRepo) ConsumeMFAToken(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE mfa_tokens SET consumed_at = ?
		WHERE id = ? AND consumed_at IS NULL`,
		toUnix(time.Now()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func (r *mfaTokensRepo) DeleteMFAToken(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mfa_tokens WHERE id = ?`, id)
	return err
}

func (r *mfaTokensRepo) DeleteExpiredMFATokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM mfa_tokens WHERE expires_at < ?`, toUnix(time.Now()))
	return err
}
