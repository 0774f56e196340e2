package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lanternhq/lantern/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, phone, password_hash, role, scopes, mfa_method,
	totp_secret, totp_pending, mfa_enabled_at, created_at, updated_at`

func (r *usersRepo) scanUser(row *sql.Row) (domain.User, error) {
	var (
		u            domain.User
		scopes       string
		totpSecret   sql.NullString
		totpPending  sql.NullString
		mfaEnabledAt sql.NullInt64
		createdAt    int64
		updatedAt    int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &scopes,
		&u.MFAMethod, &totpSecret, &totpPending, &mfaEnabledAt, &createdAt, &updatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Scopes = splitScopes(scopes)
	u.TOTPSecret = fromNullString(totpSecret)
	u.TOTPPending = fromNullString(totpPending)
	u.MFAEnabledAt = fromUnixPtr(mfaEnabledAt)
	u.CreatedAt = fromUnix(createdAt)
	u.UpdatedAt = fromUnix(updatedAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now()
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, phone, password_hash, role, scopes, mfa_method,
			totp_secret, totp_pending, mfa_enabled_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Phone, u.PasswordHash, u.Role, joinScopes(u.Scopes),
		u.MFAMethod, toNullString(u.TOTPSecret), toNullString(u.TOTPPending),
		toUnixPtr(u.MFAEnabledAt), toUnix(createdAt), toUnix(now))
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, toUnix(time.Now()), userID)
}

func (r *usersRepo) UpdateScopes(ctx context.Context, userID string, scopes []string) error {
	return r.exec(ctx, `UPDATE users SET scopes = ?, updated_at = ? WHERE id = ?`,
		joinScopes(scopes), toUnix(time.Now()), userID)
}

func (r *usersRepo) SetPendingTOTPSecret(ctx context.Context, userID string, secret string) error {
	return r.exec(ctx, `UPDATE users SET totp_pending = ?, updated_at = ? WHERE id = ?`,
		secret, toUnix(time.Now()), userID)
}

func (r *usersRepo) ActivateTOTP(ctx context.Context, userID string) error {
	now := toUnix(time.Now())
	return r.exec(ctx, `
		UPDATE users
		SET totp_secret = totp_pending, totp_pending = NULL,
			mfa_method = ?, mfa_enabled_at = ?, updated_at = ?
		WHERE id = ? AND totp_pending IS NOT NULL`,
		domain.MFATOTP, now, now, userID)
}

func (r *usersRepo) SetMFAMethod(ctx context.Context, userID string, method string) error {
	now := toUnix(time.Now())
	if method == domain.MFANone {
		return r.exec(ctx, `
			UPDATE users
			SET mfa_method = ?, totp_secret = NULL, totp_pending = NULL,
				mfa_enabled_at = NULL, updated_at = ?
			WHERE id = ?`,
			method, now, userID)
	}
	return r.exec(ctx, `
		UPDATE users SET mfa_method = ?, mfa_enabled_at = ?, updated_at = ? WHERE id = ?`,
		method, now, now, userID)
}

func (r *usersRepo) DeleteUser(ctx context.Context, userID string) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = ?`, userID)
}

// exec runs a statement that must touch exactly one row.
func (r *usersRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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
