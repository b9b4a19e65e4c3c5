package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/gateway/internal/domain"
)

// GetUpstreamToken returns the stored upstream token for (routeID,
// sessionID), where a nil sessionID addresses the session-independent
// (global) slot. Returns nil when no row exists.
func (s *Store) GetUpstreamToken(ctx context.Context, routeID string, sessionID *int64) (*domain.UpstreamToken, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, route_id, session_id, access_token, refresh_token, expires_at, created_at, last_refreshed_at
		 FROM upstream_tokens WHERE route_id = ? AND IFNULL(session_id, 0) = IFNULL(?, 0)`,
		routeID, sessionID)

	var t domain.UpstreamToken
	var sid sql.NullInt64
	err := row.Scan(&t.ID, &t.RouteID, &sid, &t.AccessToken, &t.RefreshToken,
		&t.ExpiresAt, &t.CreatedAt, &t.LastRefreshedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get upstream token: %w", err)
	}
	if sid.Valid {
		v := sid.Int64
		t.SessionID = &v
	}
	return &t, nil
}

// UpsertUpstreamToken creates or replaces the token for its key. Mints
// are durably recorded here before callers ever see the token.
func (s *Store) UpsertUpstreamToken(ctx context.Context, t *domain.UpstreamToken) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.LastRefreshedAt = now

	var sid any
	if t.SessionID != nil {
		sid = *t.SessionID
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO upstream_tokens (route_id, session_id, access_token, refresh_token,
		                              expires_at, created_at, last_refreshed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(route_id, IFNULL(session_id, 0)) DO UPDATE SET
		   access_token = excluded.access_token,
		   refresh_token = excluded.refresh_token,
		   expires_at = excluded.expires_at,
		   last_refreshed_at = excluded.last_refreshed_at`,
		t.RouteID, sid, t.AccessToken, t.RefreshToken, t.ExpiresAt.UTC(), t.CreatedAt, t.LastRefreshedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert upstream token: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil && id > 0 {
		t.ID = id
	}
	return nil
}

// DeleteUpstreamToken removes the token for (routeID, sessionID).
func (s *Store) DeleteUpstreamToken(ctx context.Context, routeID string, sessionID *int64) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM upstream_tokens WHERE route_id = ? AND IFNULL(session_id, 0) = IFNULL(?, 0)",
		routeID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete upstream token: %w", err)
	}
	return nil
}
