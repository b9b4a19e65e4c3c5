// Package user provisions gateway users on first login and enforces
// account state.
package user

import (
	"context"
	"time"

	"github.com/your-org/gateway/internal/domain"
	"github.com/your-org/gateway/internal/store"
	gwerrors "github.com/your-org/gateway/pkg/errors"
	"github.com/your-org/gateway/pkg/logger"
	"github.com/your-org/gateway/pkg/security"
)

// Service manages gateway user records.
type Service struct {
	store *store.Store
	now   func() time.Time
}

// New creates a user service.
func New(st *store.Store) *Service {
	return &Service{store: st, now: time.Now}
}

// GetOrCreate returns the user with the given username, provisioning a
// new enabled account on first login. Disabled accounts are rejected.
func (s *Service) GetOrCreate(ctx context.Context, username, email string) (*domain.User, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if err == nil {
		if !u.IsEnabled {
			return nil, gwerrors.ErrUserDisabled
		}
		return u, nil
	}
	if !gwerrors.Is(err, gwerrors.ErrUserNotFound) {
		return nil, err
	}

	if email == "" {
		email = username
	}
	u = &domain.User{
		Username:  username,
		Email:     email,
		IsEnabled: true,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		// Lost a race with a concurrent first login for the same user.
		if gwerrors.Is(err, gwerrors.ErrUserExists) {
			return s.store.GetUserByUsername(ctx, username)
		}
		return nil, err
	}
	logger.Info("provisioned user on first login",
		logger.String("username", username),
		logger.Int64("user_id", u.ID))
	return u, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, userID int64) (*domain.User, error) {
	return s.store.GetUser(ctx, userID)
}

// RecordLogin stamps the user's last login time.
func (s *Service) RecordLogin(ctx context.Context, userID int64) error {
	return s.store.TouchUserLogin(ctx, userID, s.now())
}

// ValidatePasskey checks a presented passkey against the stored one in
// constant time. Users without a passkey cannot authenticate this way.
func (s *Service) ValidatePasskey(ctx context.Context, username, passkey string) (*domain.User, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !u.IsEnabled {
		return nil, gwerrors.ErrUserDisabled
	}
	if u.Passkey == "" || !security.SecureCompare(u.Passkey, passkey) {
		return nil, gwerrors.ErrUserNotFound
	}
	return u, nil
}
