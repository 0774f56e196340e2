package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/lanternhq/lantern/internal/auth/domain"
)

type sessionsRepo struct {
	db dbtx
}

const sessionColumns = `id, user_id, ip_address, user_agent, created_at, last_used_at, revoked_at`

func scanSession(scan func(dest ...any) error) (domain.Session, error) {
	var (
		s          domain.Session
		createdAt  int64
		lastUsedAt int64
		revokedAt  sql.NullInt64
	)
	err := scan(&s.ID, &s.UserID, &s.IPAddress, &s.UserAgent, &createdAt, &lastUsedAt, &revokedAt)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.CreatedAt = fromUnix(createdAt)
	s.LastUsedAt = fromUnix(lastUsedAt)
	s.RevokedAt = fromUnixPtr(revokedAt)
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	lastUsedAt := s.LastUsedAt
	if lastUsedAt.IsZero() {
		lastUsedAt = createdAt
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, ip_address, user_agent, created_at, last_used_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.IPAddress, s.UserAgent,
		toUnix(createdAt), toUnix(lastUsedAt), toUnixPtr(s.RevokedAt))
	return err
}

func (r *sessionsRepo) GetSessionByID(ctx context.Context, id string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row.Scan)
}

func (r *sessionsRepo) ListUserSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ? AND revoked_at IS NULL
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *sessionsRepo) TouchSession(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_used_at = ? WHERE id = ?`,
		toUnix(time.Now()), id)
	return err
}

func (r *sessionsRepo) RevokeSession(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = ?
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
		// Already revoked or unknown: distinguish so revoking twice stays
		// a no-op while a bogus id is an error.
		var exists int
		err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&exists)
		return mapNotFound(err)
	}
	return nil
}

func (r *sessionsRepo) RevokeAllUserSessions(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET revoked_at = ?
		WHERE user_id = ? AND revoked_at IS NULL`,
		toUnix(time.Now()), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionsRepo) DeleteRevokedSessionsBefore(ctx context.Context, cutoff int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE revoked_at IS NOT NULL AND revoked_at < ?`, cutoff)
	return err
}
