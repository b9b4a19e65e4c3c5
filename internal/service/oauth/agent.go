// Package oauth implements the authorization-code flow against the
// discovered IdP endpoints: PKCE-protected authorization requests and
// code-for-token exchange with ID token validation.
package oauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/your-org/gateway/internal/config"
	"github.com/your-org/gateway/internal/service/crypto"
	"github.com/your-org/gateway/internal/service/discovery"
	"github.com/your-org/gateway/internal/service/jwt"
	gwerrors "github.com/your-org/gateway/pkg/errors"
	"github.com/your-org/gateway/pkg/logger"
)

// AuthorizationRequest carries everything the orchestrator needs to
// start a login: the URL for the browser and the secrets that go into
// encrypted transient cookies.
type AuthorizationRequest struct {
	AuthorizationURL string
	State            string
	CodeVerifier     string
	CodeChallenge    string
	Nonce            string
}

// TokenResult is the outcome of a successful code exchange.
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       time.Time
}

// Agent drives the authorization-code flow.
type Agent struct {
	cache  *discovery.Cache
	jwt    *jwt.Service
	cfg    config.OAuthConfig
	client *http.Client
}

// New creates an OAuth agent.
func New(cache *discovery.Cache, jwtSvc *jwt.Service, cfg config.OAuthConfig) *Agent {
	return &Agent{
		cache:  cache,
		jwt:    jwtSvc,
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *Agent) oauthConfig(meta *discovery.Metadata, redirectURI string) *oauth2.Config {
	scope := a.cfg.Scope
	if scope == "" {
		scope = "openid profile email"
	}
	if redirectURI == "" {
		redirectURI = a.cfg.RedirectURI
	}
	return &oauth2.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       strings.Fields(scope),
		Endpoint: oauth2.Endpoint{
			AuthURL:  meta.AuthorizationEndpoint,
			TokenURL: meta.TokenEndpoint,
		},
	}
}

// GenerateAuthorizationRequest builds a PKCE and nonce protected
// authorization URL. The verifier, state, and nonce never leave the
// server unencrypted; only the challenge appears in the URL.
func (a *Agent) GenerateAuthorizationRequest(ctx context.Context, redirectURI string) (*AuthorizationRequest, error) {
	meta, err := a.cache.Metadata(ctx)
	if err != nil {
		return nil, err
	}

	verifier, err := crypto.GenerateCodeVerifier()
	if err != nil {
		return nil, err
	}
	state, err := crypto.GenerateState()
	if err != nil {
		return nil, err
	}
	nonce, err := crypto.GenerateNonce()
	if err != nil {
		return nil, err
	}
	challenge := crypto.CodeChallenge(verifier)

	authURL := a.oauthConfig(meta, redirectURI).AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)

	return &AuthorizationRequest{
		AuthorizationURL: authURL,
		State:            state,
		CodeVerifier:     verifier,
		CodeChallenge:    challenge,
		Nonce:            nonce,
	}, nil
}

// ExchangeCode swaps an authorization code for tokens and validates the
// ID token when one is returned. expectedNonce binds the exchange to
// the login attempt that produced the code.
func (a *Agent) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURI, expectedNonce string) (*TokenResult, error) {
	meta, err := a.cache.Metadata(ctx)
	if err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	tok, err := a.oauthConfig(meta, redirectURI).Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if gwerrors.As(err, &retrieveErr) {
			logger.Warn("token endpoint rejected exchange",
				logger.Int("status", retrieveErr.Response.StatusCode),
				logger.String("body", string(retrieveErr.Body)))
			return nil, fmt.Errorf("%w: %s", gwerrors.ErrExchangeFailed, retrieveErr.Body)
		}
		// Not a token endpoint verdict: the endpoint was never reached.
		return nil, fmt.Errorf("token endpoint request failed: %w", err)
	}

	result := &TokenResult{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		// OAuth2-only mode: trust degrades to the access token.
		logger.Warn("token response carried no id token")
		return result, nil
	}

	if _, err := a.jwt.ValidateIDToken(ctx, idToken, expectedNonce); err != nil {
		// Tokens are never accepted alongside an invalid ID token.
		return nil, fmt.Errorf("%w: id token rejected: %w", gwerrors.ErrExchangeFailed, err)
	}
	result.IDToken = idToken
	return result, nil
}

// IdentityClaims extracts the user identity from the exchange result,
// preferring the validated ID token over the access token.
func (a *Agent) IdentityClaims(result *TokenResult) (username, email string, err error) {
	raw := result.IDToken
	if raw == "" {
		raw = result.AccessToken
	}
	claims, err := a.jwt.ExtractClaims(raw)
	if err != nil {
		return "", "", err
	}
	username = a.jwt.Username(claims)
	if username == "" {
		return "", "", fmt.Errorf("%w: no usable identity claim", gwerrors.ErrTokenInvalid)
	}
	email = a.jwt.Email(claims)
	if email == "" {
		email = username
	}
	return username, email, nil
}
