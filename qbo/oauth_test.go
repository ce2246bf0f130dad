package qbo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func setOAuthEnv(t *testing.T) {
	t.Helper()
	t.Setenv("QBO_CLIENT_ID", "client-id")
	t.Setenv("QBO_CLIENT_SECRET", "client-secret")
	t.Setenv("QBO_REDIRECT_URI", "https://crm.example.com/api/qbo/callback")
}

func TestAuthorizeURL(t *testing.T) {
	setOAuthEnv(t)

	raw, err := AuthorizeURL("state-abc")
	if err != nil {
		t.Fatalf("AuthorizeURL: %v", err)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Host != "appcenter.intuit.com" {
		t.Errorf("host = %q", parsed.Host)
	}
	q := parsed.Query()
	if q.Get("client_id") != "client-id" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q", q.Get("response_type"))
	}
	if q.Get("scope") != accountingScope {
		t.Errorf("scope = %q", q.Get("scope"))
	}
	if q.Get("state") != "state-abc" {
		t.Errorf("state = %q", q.Get("state"))
	}
}

func TestExchangeCode(t *testing.T) {
	setOAuthEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			t.Errorf("basic auth = %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("code") != "auth-code" {
			t.Errorf("code = %q", r.PostForm.Get("code"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"bearer","expires_in":3600,"x_refresh_token_expires_in":8726400}`))
	}))
	defer srv.Close()
	t.Setenv("QBO_TOKEN_ENDPOINT", srv.URL)

	before := time.Now()
	tokens, err := ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if tokens.AccessToken != "at" || tokens.RefreshToken != "rt" {
		t.Errorf("tokens = %+v", tokens)
	}
	if tokens.ExpiresAt.Before(before.Add(59 * time.Minute)) {
		t.Errorf("expiresAt too early: %v", tokens.ExpiresAt)
	}
	if tokens.RefreshTokenExpiresAt.Before(before.Add(100 * 24 * time.Hour)) {
		t.Errorf("refresh expiry too early: %v", tokens.RefreshTokenExpiresAt)
	}
}

func TestRefreshTokensRejected(t *testing.T) {
	setOAuthEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Token expired"}`))
	}))
	defer srv.Close()
	t.Setenv("QBO_TOKEN_ENDPOINT", srv.URL)

	_, err := RefreshTokens(context.Background(), "dead-token")
	if err == nil {
		t.Fatal("expected error")
	}
	remoteErr, ok := err.(*RemoteError)
	if !ok {
		t.Fatalf("expected RemoteError, got %T", err)
	}
	if !strings.Contains(remoteErr.Message, "invalid_grant") {
		t.Errorf("message = %q", remoteErr.Message)
	}
}
