package qbo

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func signBody(body []byte, token string) string {
	mac := hmac.New(sha256.New, []byte(token))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"eventNotifications":[]}`)
	token := "verifier-secret"

	if !VerifySignature(body, signBody(body, token), token) {
		t.Error("valid signature rejected")
	}
	if VerifySignature(body, signBody(body, "wrong-token"), token) {
		t.Error("signature from wrong key accepted")
	}
	tampered := []byte(`{"eventNotifications":[{"realmId":"evil"}]}`)
	if VerifySignature(tampered, signBody(body, token), token) {
		t.Error("tampered body accepted")
	}
	if VerifySignature(body, "", token) {
		t.Error("empty signature accepted")
	}
	if VerifySignature(body, signBody(body, token), "") {
		t.Error("empty verifier token accepted")
	}
}

func webhookRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/qbo/webhook", WebhookHandler())
	return r
}

func TestWebhookRejectsTamperedBody(t *testing.T) {
	t.Setenv("QBO_WEBHOOK_VERIFIER_TOKEN", "verifier-secret")

	original := []byte(`{"eventNotifications":[]}`)
	tampered := []byte(`{"eventNotifications":[{"realmId":"evil"}]}`)

	req := httptest.NewRequest(http.MethodPost, "/api/qbo/webhook", bytes.NewReader(tampered))
	req.Header.Set("intuit-signature", signBody(original, "verifier-secret"))
	w := httptest.NewRecorder()
	webhookRouter().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	t.Setenv("QBO_WEBHOOK_VERIFIER_TOKEN", "verifier-secret")

	req := httptest.NewRequest(http.MethodPost, "/api/qbo/webhook", bytes.NewReader([]byte(`{"eventNotifications":[]}`)))
	w := httptest.NewRecorder()
	webhookRouter().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestWebhookAcksUnknownEntities(t *testing.T) {
	t.Setenv("QBO_WEBHOOK_VERIFIER_TOKEN", "verifier-secret")

	body := []byte(`{"eventNotifications":[{"realmId":"12345","dataChangeEvent":{"entities":[{"name":"Vendor","id":"9","operation":"Update"}]}}]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/qbo/webhook", bytes.NewReader(body))
	req.Header.Set("intuit-signature", signBody(body, "verifier-secret"))
	w := httptest.NewRecorder()
	webhookRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestWebhookAcksMalformedJSONAfterAuth(t *testing.T) {
	t.Setenv("QBO_WEBHOOK_VERIFIER_TOKEN", "verifier-secret")

	body := []byte(`not json`)
	req := httptest.NewRequest(http.MethodPost, "/api/qbo/webhook", bytes.NewReader(body))
	req.Header.Set("intuit-signature", signBody(body, "verifier-secret"))
	w := httptest.NewRecorder()
	webhookRouter().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
