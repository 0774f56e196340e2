package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lanternhq/lantern/internal/auth/domain"
)

type apiKeysRepo struct {
	db dbtx
}

const apiKeyColumns = `id, user_id, name, scopes, expires_at, revoked_at, created_at`

func scanAPIKey(scan func(dest ...any) error) (domain.APIKey, error) {
	var (
		k         domain.APIKey
		scopes    string
		expiresAt sql.NullInt64
		revokedAt sql.NullInt64
		createdAt int64
	)
	err := scan(&k.ID, &k.UserID, &k.Name, &scopes, &expiresAt, &revokedAt, &createdAt)
	if err != nil {
		return domain.APIKey{}, mapNotFound(err)
	}
	k.Scopes = splitScopes(scopes)
	k.ExpiresAt = fromUnixPtr(expiresAt)
	k.RevokedAt = fromUnixPtr(revokedAt)
	k.CreatedAt = fromUnix(createdAt)
	return k, nil
}

func (r *apiKeysRepo) CreateAPIKey(ctx context.Context, k domain.APIKey) error {
	createdAt := k.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (id, user_id, name, scopes, expires_at, revoked_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		k.ID, k.UserID, k.Name, joinScopes(k.Scopes),
		toUnixPtr(k.ExpiresAt), toUnixPtr(k.RevokedAt), toUnix(createdAt))
	return err
}

func (r *apiKeysRepo) GetAPIKeyByID(ctx context.Context, id string) (domain.APIKey, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE id = ?`, id)
	return scanAPIKey(row.Scan)
}

func (r *apiKeysRepo) ListUserAPIKeys(ctx context.Context, userID string) ([]domain.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+apiKeyColumns+` FROM api_keys
		WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows.Scan)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *apiKeysRepo) RevokeAPIKey(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE api_keys SET revoked_at = ?
		WHERE id = ? AND revoked_at IS NULL`,
		toUnix(time.Now()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM api_keys WHERE id = ?`, id).Scan(&exists)
		return mapNotFound(err)
	}
	return nil
}
