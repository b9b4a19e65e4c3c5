package user

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/gateway/internal/domain"
	"github.com/your-org/gateway/internal/store"
	gwerrors "github.com/your-org/gateway/pkg/errors"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st), st
}

func TestGetOrCreate_ProvisionsOnFirstLogin(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	u, err := svc.GetOrCreate(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.True(t, u.IsEnabled)

	// Second login returns the same record.
	again, err := svc.GetOrCreate(ctx, "alice", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	all, err := st.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetOrCreate_EmailDefaultsToUsername(t *testing.T) {
	svc, _ := newTestService(t)

	u, err := svc.GetOrCreate(context.Background(), "bob", "")
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Email)
}

func TestGetOrCreate_DisabledUserRejected(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	u, err := svc.GetOrCreate(ctx, "carol", "")
	require.NoError(t, err)

	u.IsEnabled = false
	require.NoError(t, st.UpdateUser(ctx, u))

	_, err = svc.GetOrCreate(ctx, "carol", "")
	assert.ErrorIs(t, err, gwerrors.ErrUserDisabled)
}

func TestRecordLogin(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	u, err := svc.GetOrCreate(ctx, "dave", "")
	require.NoError(t, err)
	require.Nil(t, u.LastLoginAt)

	require.NoError(t, svc.RecordLogin(ctx, u.ID))

	u, err = st.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, u.LastLoginAt)
}

func TestValidatePasskey(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	u := &domain.User{Username: "erin", Email: "erin@example.com", IsEnabled: true, Passkey: "s3cret"}
	require.NoError(t, st.CreateUser(ctx, u))

	got, err := svc.ValidatePasskey(ctx, "erin", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.ValidatePasskey(ctx, "erin", "wrong")
	assert.ErrorIs(t, err, gwerrors.ErrUserNotFound)

	// Empty stored passkey never matches, even against empty input.
	u.Passkey = ""
	require.NoError(t, st.UpdateUser(ctx, u))
	_, err = svc.ValidatePasskey(ctx, "erin", "")
	assert.ErrorIs(t, err, gwerrors.ErrUserNotFound)

	u.Passkey = "s3cret"
	u.IsEnabled = false
	require.NoError(t, st.UpdateUser(ctx, u))
	_, err = svc.ValidatePasskey(ctx, "erin", "s3cret")
	assert.ErrorIs(t, err, gwerrors.ErrUserDisabled)
}
