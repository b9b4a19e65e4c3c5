package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/gateway/internal/config"
	"github.com/your-org/gateway/internal/domain"
	"github.com/your-org/gateway/internal/service/crypto"
	"github.com/your-org/gateway/internal/store"
	gwerrors "github.com/your-org/gateway/pkg/errors"
)

func newTestManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m := NewManager(st, config.SessionConfig{
		IdleTimeout:     30 * time.Minute,
		AbsoluteTimeout: 8 * time.Hour,
		CleanupInterval: time.Hour,
	})
	return m, st
}

func createTestUser(t *testing.T, st *store.Store, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, Email: username + "@example.com", IsEnabled: true}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func TestManager_CreateAndGet(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	u := createTestUser(t, st, "alice")

	sess, err := m.Create(ctx, u.ID, "at-1", "rt-1", "10.0.0.1", "curl/8")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.TokenID)
	assert.WithinDuration(t, time.Now().Add(8*time.Hour), sess.ExpiresAt, 5*time.Second)

	got, err := m.Get(ctx, sess.TokenID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "at-1", got.AccessToken)
	assert.Equal(t, u.ID, got.UserID)
}

func TestManager_TokenIDsUnique(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	u := createTestUser(t, st, "alice")

	a, err := m.Create(ctx, u.ID, "at", "rt", "", "")
	require.NoError(t, err)
	b, err := m.Create(ctx, u.ID, "at", "rt", "", "")
	require.NoError(t, err)
	assert.NotEqual(t, a.TokenID, b.TokenID)
}

func TestManager_GetUnknownToken(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Get(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
}

func TestManager_RevokedSession(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	u := createTestUser(t, st, "alice")

	sess, err := m.Create(ctx, u.ID, "at", "rt", "", "")
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, sess.ID))

	_, err = m.Get(ctx, sess.TokenID)
	assert.ErrorIs(t, err, gwerrors.ErrSessionRevoked)
}

func TestManager_AbsoluteExpiryRevokesLazily(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	u := createTestUser(t, st, "alice")

	sess, err := m.Create(ctx, u.ID, "at", "rt", "", "")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(9 * time.Hour) }
	_, err = m.Get(ctx, sess.TokenID)
	assert.ErrorIs(t, err, gwerrors.ErrSessionExpired)

	// The expired read revoked the row as a side effect.
	stored, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRevoked)
}

func TestManager_IdleExpiry(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	u := createTestUser(t, st, "alice")

	sess, err := m.Create(ctx, u.ID, "at", "rt", "", "")
	require.NoError(t, err)

	// Idle past 30 minutes while still well inside the absolute window.
	m.now = func() time.Time { return time.Now().Add(45 * time.Minute) }
	_, err = m.Get(ctx, sess.TokenID)
	assert.ErrorIs(t, err, gwerrors.ErrSessionExpired)
}

func TestManager_TouchExtendsIdleWindow(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	u := createTestUser(t, st, "alice")

	sess, err := m.Create(ctx, u.ID, "at", "rt", "", "")
	require.NoError(t, err)

	// A touch 20 minutes in resets the idle clock, so a read at 45
	// minutes still succeeds.
	base := time.Now()
	m.now = func() time.Time { return base.Add(20 * time.Minute) }
	require.NoError(t, m.Touch(ctx, sess.ID))

	m.now = func() time.Time { return base.Add(45 * time.Minute) }
	_, err = m.Get(ctx, sess.TokenID)
	assert.NoError(t, err)
}

func TestManager_DisabledUserRevokesSession(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	u := createTestUser(t, st, "alice")

	sess, err := m.Create(ctx, u.ID, "at", "rt", "", "")
	require.NoError(t, err)

	u.IsEnabled = false
	require.NoError(t, st.UpdateUser(ctx, u))

	_, err = m.Get(ctx, sess.TokenID)
	assert.ErrorIs(t, err, gwerrors.ErrUserDisabled)

	stored, err := st.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRevoked)
}

func TestSweeper_RemovesExpiredAndRevoked(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	u := createTestUser(t, st, "alice")

	valid, err := m.Create(ctx, u.ID, "at", "rt", "", "")
	require.NoError(t, err)
	revoked, err := m.Create(ctx, u.ID, "at", "rt", "", "")
	require.NoError(t, err)
	require.NoError(t, m.Revoke(ctx, revoked.ID))

	sw := NewSweeper(st, time.Hour)
	sw.sweep(ctx)

	_, err = st.GetSession(ctx, valid.ID)
	assert.NoError(t, err)
	_, err = st.GetSession(ctx, revoked.ID)
	assert.ErrorIs(t, err, gwerrors.ErrSessionNotFound)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	_, st := newTestManager(t)

	sw := NewSweeper(st, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on cancel")
	}
}

func newTestCodec(t *testing.T) *CookieCodec {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	protector, err := crypto.NewProtector(key)
	require.NoError(t, err)
	return NewCookieCodec(protector, 10*time.Minute, 8*time.Hour)
}

func TestCookieCodec_SessionRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	rec := httptest.NewRecorder()
	require.NoError(t, codec.WriteSession(rec, "token-123"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, SessionCookie, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	// The token id never appears in the cookie value.
	assert.NotContains(t, c.Value, "token-123")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	got, err := codec.ReadSession(req)
	require.NoError(t, err)
	assert.Equal(t, "token-123", got)
}

func TestCookieCodec_MissingCookie(t *testing.T) {
	codec := newTestCodec(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := codec.ReadSession(req)
	assert.ErrorIs(t, err, gwerrors.ErrCookieMissing)
}

func TestCookieCodec_TamperedCookie(t *testing.T) {
	codec := newTestCodec(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "forged-value"})
	_, err := codec.ReadSession(req)
	assert.ErrorIs(t, err, gwerrors.ErrDecryptionFailed)
}

func TestCookieCodec_LoginStateRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	rec := httptest.NewRecorder()
	require.NoError(t, codec.WriteLoginState(rec, "st", "ver", "non"))
	require.Len(t, rec.Result().Cookies(), 3)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	state, verifier, nonce, err := codec.ReadLoginState(req)
	require.NoError(t, err)
	assert.Equal(t, "st", state)
	assert.Equal(t, "ver", verifier)
	assert.Equal(t, "non", nonce)
}

func TestCookieCodec_ClearSetsExpiredCookies(t *testing.T) {
	codec := newTestCodec(t)

	rec := httptest.NewRecorder()
	codec.ClearSession(rec)
	codec.ClearLoginState(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 4)
	for _, c := range cookies {
		assert.Less(t, c.MaxAge, 0, c.Name)
		assert.Empty(t, c.Value, c.Name)
	}
}
