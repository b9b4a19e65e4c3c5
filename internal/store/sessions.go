package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/gateway/internal/domain"
	gwerrors "github.com/your-org/gateway/pkg/errors"
)

const sessionColumns = `id, token_id, user_id, access_token, refresh_token, expires_at,
	created_at, last_accessed_at, ip_address, user_agent, is_revoked`

func scanSession(row interface{ Scan(...any) error }) (*domain.Session, error) {
	var s domain.Session
	var revoked int
	if err := row.Scan(&s.ID, &s.TokenID, &s.UserID, &s.AccessToken, &s.RefreshToken,
		&s.ExpiresAt, &s.CreatedAt, &s.LastAccessedAt, &s.IPAddress, &s.UserAgent, &revoked); err != nil {
		return nil, err
	}
	s.IsRevoked = revoked != 0
	return &s, nil
}

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, sess *domain.Session) error {
	now := time.Now().UTC()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.LastAccessedAt.IsZero() {
		sess.LastAccessedAt = now
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token_id, user_id, access_token, refresh_token, expires_at,
		                       created_at, last_accessed_at, ip_address, user_agent, is_revoked)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.TokenID, sess.UserID, sess.AccessToken, sess.RefreshToken, sess.ExpiresAt.UTC(),
		sess.CreatedAt, sess.LastAccessedAt, sess.IPAddress, sess.UserAgent, boolToInt(sess.IsRevoked))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	sess.ID, _ = res.LastInsertId()
	return nil
}

// GetSessionByTokenID returns the session carrying the opaque token id.
func (s *Store) GetSessionByTokenID(ctx context.Context, tokenID string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE token_id = ?", tokenID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gwerrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// GetSession returns the session with the given id.
func (s *Store) GetSession(ctx context.Context, id int64) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gwerrors.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]*domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// TouchSession advances last_accessed_at for sliding expiry.
func (s *Store) TouchSession(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET last_accessed_at = ? WHERE id = ?", at.UTC(), id)
	return err
}

// RevokeSession marks a session revoked. Deletion is the sweep's job.
func (s *Store) RevokeSession(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE sessions SET is_revoked = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return gwerrors.ErrSessionNotFound
	}
	return nil
}

// DeleteExpiredSessions removes every session that is past its absolute
// expiry or has been revoked. Returns the number of rows removed.
func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at < ? OR is_revoked = 1", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
