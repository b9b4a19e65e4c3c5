// Package session manages server-side login sessions: creation,
// validation with sliding and absolute expiry, revocation, and the
// encrypted cookies that reference them.
package session

import (
	"context"
	"time"

	"github.com/your-org/gateway/internal/config"
	"github.com/your-org/gateway/internal/domain"
	"github.com/your-org/gateway/internal/service/crypto"
	"github.com/your-org/gateway/internal/store"
	gwerrors "github.com/your-org/gateway/pkg/errors"
	"github.com/your-org/gateway/pkg/logger"
)

// Manager owns the session lifecycle. The browser only ever sees the
// opaque token id, encrypted inside a cookie; IdP tokens stay in the
// store.
type Manager struct {
	store *store.Store
	cfg   config.SessionConfig
	now   func() time.Time
}

// NewManager creates a session manager.
func NewManager(st *store.Store, cfg config.SessionConfig) *Manager {
	return &Manager{store: st, cfg: cfg, now: time.Now}
}

// Create opens a session for the user and returns it with a fresh
// opaque token id. The absolute expiry is fixed at creation.
func (m *Manager) Create(ctx context.Context, userID int64, accessToken, refreshToken, ipAddress, userAgent string) (*domain.Session, error) {
	tokenID, err := crypto.GenerateSessionTokenID()
	if err != nil {
		return nil, err
	}

	now := m.now()
	sess := &domain.Session{
		TokenID:        tokenID,
		UserID:         userID,
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		ExpiresAt:      now.Add(m.cfg.AbsoluteTimeout),
		CreatedAt:      now,
		LastAccessedAt: now,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	logger.Info("session created",
		logger.Int64("user_id", userID),
		logger.Int64("session_id", sess.ID),
		logger.Time("expires_at", sess.ExpiresAt))
	return sess, nil
}

// Get resolves a token id to a usable session. Sessions past either
// expiry, or belonging to a disabled user, are revoked as a side effect
// before the error is returned.
func (m *Manager) Get(ctx context.Context, tokenID string) (*domain.Session, error) {
	sess, err := m.store.GetSessionByTokenID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if sess.IsRevoked {
		return nil, gwerrors.ErrSessionRevoked
	}

	now := m.now()
	if sess.Expired(now) || sess.IdleExpired(now, m.cfg.IdleTimeout) {
		m.revokeQuietly(ctx, sess.ID, "expired")
		return nil, gwerrors.ErrSessionExpired
	}

	u, err := m.store.GetUser(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	if !u.IsEnabled {
		m.revokeQuietly(ctx, sess.ID, "user disabled")
		return nil, gwerrors.ErrUserDisabled
	}
	return sess, nil
}

// Touch slides the idle window forward.
func (m *Manager) Touch(ctx context.Context, sessionID int64) error {
	return m.store.TouchSession(ctx, sessionID, m.now())
}

// Revoke marks the session unusable. The sweep deletes it later.
func (m *Manager) Revoke(ctx context.Context, sessionID int64) error {
	if err := m.store.RevokeSession(ctx, sessionID); err != nil {
		return err
	}
	logger.Info("session revoked", logger.Int64("session_id", sessionID))
	return nil
}

// RevokeByTokenID revokes whatever session the token id points at,
// even one already expired, and returns it. Logout must work on stale
// cookies.
func (m *Manager) RevokeByTokenID(ctx context.Context, tokenID string) (*domain.Session, error) {
	sess, err := m.store.GetSessionByTokenID(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if err := m.Revoke(ctx, sess.ID); err != nil {
		return nil, err
	}
	return sess, nil
}

func (m *Manager) revokeQuietly(ctx context.Context, sessionID int64, reason string) {
	if err := m.store.RevokeSession(ctx, sessionID); err != nil {
		logger.Warn("failed to revoke session",
			logger.Int64("session_id", sessionID),
			logger.String("reason", reason),
			logger.Err(err))
	}
}
