package session

import (
	"net/http"
	"time"

	"github.com/your-org/gateway/internal/service/crypto"
	gwerrors "github.com/your-org/gateway/pkg/errors"
)

// Cookie names. The __Host- prefix locks cookies to the exact host over
// HTTPS with Path=/ and no Domain attribute.
const (
	SessionCookie      = "__Host-Session"
	StateCookie        = "__Host-State"
	CodeVerifierCookie = "__Host-CodeVerifier"
	NonceCookie        = "__Host-Nonce"
)

// CookieCodec encrypts values into cookies and back. Every cookie it
// writes is HttpOnly, Secure, SameSite=Strict.
type CookieCodec struct {
	protector    *crypto.Protector
	transientTTL time.Duration
	sessionTTL   time.Duration
}

// NewCookieCodec creates a codec. transientTTL bounds the login-flow
// cookies (state, verifier, nonce); sessionTTL bounds the session
// cookie and normally matches the absolute session timeout.
func NewCookieCodec(protector *crypto.Protector, transientTTL, sessionTTL time.Duration) *CookieCodec {
	if transientTTL <= 0 {
		transientTTL = 10 * time.Minute
	}
	return &CookieCodec{protector: protector, transientTTL: transientTTL, sessionTTL: sessionTTL}
}

func (c *CookieCodec) write(w http.ResponseWriter, name, plaintext string, ttl time.Duration) error {
	encrypted, err := c.protector.Encrypt(plaintext)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    encrypted,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	return nil
}

func (c *CookieCodec) read(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", gwerrors.ErrCookieMissing
	}
	plaintext, err := c.protector.Decrypt(cookie.Value)
	if err != nil {
		return "", err
	}
	return plaintext, nil
}

func clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// WriteSession stores the opaque session token id.
func (c *CookieCodec) WriteSession(w http.ResponseWriter, tokenID string) error {
	return c.write(w, SessionCookie, tokenID, c.sessionTTL)
}

// ReadSession returns the decrypted session token id.
func (c *CookieCodec) ReadSession(r *http.Request) (string, error) {
	return c.read(r, SessionCookie)
}

// ClearSession expires the session cookie.
func (c *CookieCodec) ClearSession(w http.ResponseWriter) {
	clear(w, SessionCookie)
}

// WriteLoginState stores the transient login-flow secrets.
func (c *CookieCodec) WriteLoginState(w http.ResponseWriter, state, codeVerifier, nonce string) error {
	if err := c.write(w, StateCookie, state, c.transientTTL); err != nil {
		return err
	}
	if err := c.write(w, CodeVerifierCookie, codeVerifier, c.transientTTL); err != nil {
		return err
	}
	return c.write(w, NonceCookie, nonce, c.transientTTL)
}

// ReadLoginState returns the transient login-flow secrets.
func (c *CookieCodec) ReadLoginState(r *http.Request) (state, codeVerifier, nonce string, err error) {
	if state, err = c.read(r, StateCookie); err != nil {
		return "", "", "", err
	}
	if codeVerifier, err = c.read(r, CodeVerifierCookie); err != nil {
		return "", "", "", err
	}
	if nonce, err = c.read(r, NonceCookie); err != nil {
		return "", "", "", err
	}
	return state, codeVerifier, nonce, nil
}

// ClearLoginState expires the transient cookies once the flow completes
// or fails.
func (c *CookieCodec) ClearLoginState(w http.ResponseWriter) {
	clear(w, StateCookie)
	clear(w, CodeVerifierCookie)
	clear(w, NonceCookie)
}
