package qbo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	authorizeEndpoint = "https://appcenter.intuit.com/connect/oauth2"
	tokenEndpoint     = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"
	accountingScope   = "com.intuit.quickbooks.accounting"
)

type oauthConfig struct {
	clientId     string
	clientSecret string
	redirectURI  string
}

func loadOAuthConfig() (*oauthConfig, error) {
	cfg := &oauthConfig{
		clientId:     strings.TrimSpace(os.Getenv("QBO_CLIENT_ID")),
		clientSecret: strings.TrimSpace(os.Getenv("QBO_CLIENT_SECRET")),
		redirectURI:  strings.TrimSpace(os.Getenv("QBO_REDIRECT_URI")),
	}
	if cfg.clientId == "" || cfg.clientSecret == "" || cfg.redirectURI == "" {
		return nil, errors.New("QBO_CLIENT_ID, QBO_CLIENT_SECRET and QBO_REDIRECT_URI must be set")
	}
	return cfg, nil
}

// AuthorizeURL builds the Intuit consent page URL. state is round-tripped for
// CSRF protection and verified on callback.
func AuthorizeURL(state string) (string, error) {
	cfg, err := loadOAuthConfig()
	if err != nil {
		return "", err
	}
	params := url.Values{
		"client_id":     {cfg.clientId},
		"response_type": {"code"},
		"scope":         {accountingScope},
		"redirect_uri":  {cfg.redirectURI},
		"state":         {state},
	}
	return authorizeEndpoint + "?" + params.Encode(), nil
}

// TokenSet is the bearer token response from the Intuit OAuth server.
type TokenSet struct {
	AccessToken           string
	RefreshToken          string
	TokenType             string
	ExpiresAt             time.Time
	RefreshTokenExpiresAt time.Time
}

type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	TokenType             string `json:"token_type"`
	ExpiresIn             int64  `json:"expires_in"`
	XRefreshTokenExpires  int64  `json:"x_refresh_token_expires_in"`
	Error                 string `json:"error"`
	ErrorDescription      string `json:"error_description"`
}

func requestToken(ctx context.Context, form url.Values) (*TokenSet, error) {
	cfg, err := loadOAuthConfig()
	if err != nil {
		return nil, err
	}
	endpoint := tokenEndpoint
	if v := strings.TrimSpace(os.Getenv("QBO_TOKEN_ENDPOINT")); v != "" {
		endpoint = v
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(cfg.clientId, cfg.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := parsed.Error
		if parsed.ErrorDescription != "" {
			msg = msg + ": " + parsed.ErrorDescription
		}
		return nil, &RemoteError{Op: "token exchange", Status: resp.StatusCode, Message: msg}
	}

	now := time.Now()
	return &TokenSet{
		AccessToken:           parsed.AccessToken,
		RefreshToken:          parsed.RefreshToken,
		TokenType:             parsed.TokenType,
		ExpiresAt:             now.Add(time.Duration(parsed.ExpiresIn) * time.Second),
		RefreshTokenExpiresAt: now.Add(time.Duration(parsed.XRefreshTokenExpires) * time.Second),
	}, nil
}

// ExchangeCode trades the authorization code from the OAuth callback for a
// token set.
func ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	cfg, err := loadOAuthConfig()
	if err != nil {
		return nil, err
	}
	return requestToken(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {cfg.redirectURI},
	})
}

// RefreshTokens trades a refresh token for a fresh token set. Intuit rotates
// the refresh token on every call, so the caller must persist the new one.
func RefreshTokens(ctx context.Context, refreshToken string) (*TokenSet, error) {
	return requestToken(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	})
}
