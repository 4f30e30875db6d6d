package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type SessionsRepo struct{ conn *sql.DB }

// Create inserts a new session row expiring ttl from now.
func (r *SessionsRepo) Create(ctx context.Context, id string, ttl time.Duration) error {
	now := time.Now()
	_, err := r.conn.ExecContext(ctx, `
INSERT INTO sessions (id, created_at, last_accessed, expires_at)
VALUES (?, ?, ?, ?)
`, id, fmtTime(now), fmtTime(now), fmtTime(now.Add(ttl)))
	return err
}

// Exists reports whether the session is present and not expired. Expired
// rows are indistinguishable from absent ones on purpose.
func (r *SessionsRepo) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.conn.QueryRowContext(ctx, `
SELECT 1 FROM sessions WHERE id = ? AND expires_at > ?
`, id, fmtTime(time.Now())).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Touch bumps last_accessed. Last-write-wins is fine here.
func (r *SessionsRepo) Touch(ctx context.Context, id string) error {
	_, err := r.conn.ExecContext(ctx, `
UPDATE sessions SET last_accessed = ? WHERE id = ?
`, fmtTime(time.Now()), id)
	return err
}

// BackendSessionID returns the stored backend resume token, empty when none
// has been recorded yet.
func (r *SessionsRepo) BackendSessionID(ctx context.Context, id string) (string, error) {
	var token sql.NullString
	err := r.conn.QueryRowContext(ctx, `
SELECT backend_session_id FROM sessions WHERE id = ?
`, id).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return token.String, nil
}

// SetBackendSessionID records the backend token, first write wins: once a
// session is bound to a backend session it stays bound.
func (r *SessionsRepo) SetBackendSessionID(ctx context.Context, id, backendID string) error {
	_, err := r.conn.ExecContext(ctx, `
UPDATE sessions SET backend_session_id = ? WHERE id = ? AND backend_session_id IS NULL
`, backendID, id)
	return err
}

// DeleteExpired removes sessions past their expiry, cascading to messages.
func (r *SessionsRepo) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.conn.ExecContext(ctx, `
DELETE FROM sessions WHERE expires_at <= ?
`, fmtTime(time.Now()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
