package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/your-org/gateway/internal/domain"
	gwerrors "github.com/your-org/gateway/pkg/errors"
	"github.com/your-org/gateway/pkg/logger"
)

// Token type URNs per RFC 8693.
const (
	grantTypeTokenExchange = "urn:ietf:params:oauth:grant-type:token-exchange"
	tokenTypeAccessToken   = "urn:ietf:params:oauth:token-type:access_token"
)

type tokenResponse struct {
	AccessToken     string `json:"access_token"`
	IssuedTokenType string `json:"issued_token_type"`
	TokenType       string `json:"token_type"`
	ExpiresIn       int    `json:"expires_in,omitempty"`
	Scope           string `json:"scope,omitempty"`
	RefreshToken    string `json:"refresh_token,omitempty"`
}

// exchangeToken performs an RFC 8693 token exchange against the
// policy's token endpoint, trading the session's access token for one
// scoped to the upstream.
func (b *Broker) exchangeToken(ctx context.Context, policy *domain.RoutePolicy, subjectToken string) (*tokenResponse, error) {
	if subjectToken == "" {
		return nil, fmt.Errorf("%w: token exchange requires a subject token", gwerrors.ErrUpstreamTokenMint)
	}

	form := url.Values{}
	form.Set("grant_type", grantTypeTokenExchange)
	form.Set("subject_token", subjectToken)
	form.Set("subject_token_type", tokenTypeAccessToken)
	form.Set("requested_token_type", tokenTypeAccessToken)
	if policy.Scope != "" {
		form.Set("scope", policy.Scope)
	}

	resp, err := b.postForm(ctx, policy, form)
	if err != nil {
		return nil, err
	}

	logger.Debug("token exchange succeeded",
		logger.String("route_id", policy.RouteID),
		logger.String("issued_token_type", resp.IssuedTokenType),
		logger.Int("expires_in", resp.ExpiresIn))
	return resp, nil
}

// postForm sends an authenticated form POST to the policy's token
// endpoint and decodes the standard token response.
func (b *Broker) postForm(ctx context.Context, policy *domain.RoutePolicy, form url.Values) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, policy.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gwerrors.ErrUpstreamTokenMint, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if policy.ClientID != "" && policy.ClientSecret != "" {
		req.SetBasicAuth(policy.ClientID, policy.ClientSecret)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gwerrors.ErrUpstreamTokenMint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", gwerrors.ErrUpstreamTokenMint, err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("%w: %s: %s", gwerrors.ErrUpstreamTokenMint, errResp.Error, errResp.ErrorDescription)
		}
		return nil, fmt.Errorf("%w: token endpoint returned status %d", gwerrors.ErrUpstreamTokenMint, resp.StatusCode)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", gwerrors.ErrUpstreamTokenMint, err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: token endpoint returned no access token", gwerrors.ErrUpstreamTokenMint)
	}
	return &tokenResp, nil
}
