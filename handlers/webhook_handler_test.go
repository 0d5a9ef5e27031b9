package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivalQuestAPI/middleware"
	"rivalQuestAPI/services"
)

const testWebhookSecret = "sk_test_webhook_secret"

func init() {
	// Handlers count webhook outcomes; the metrics must exist before the
	// first request.
	middleware.InitPrometheus()
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// newTestWebhookHandler builds a handler whose payment service is never
// reached by the tests below; they all fail before reconciliation.
func newTestWebhookHandler() *WebhookHandler {
	return NewWebhookHandler(services.NewPaymentService(nil, nil, nil), testWebhookSecret)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	h := newTestWebhookHandler()

	body := []byte(`{"event": "charge.success", "data": {"reference": "rq_ref"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.HandlePaystackWebhook(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := newTestWebhookHandler()

	body := []byte(`{"event": "charge.success", "data": {"reference": "rq_ref"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", signBody("some_other_secret", body))
	rr := httptest.NewRecorder()

	h.HandlePaystackWebhook(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhookRejectsTamperedBody(t *testing.T) {
	h := newTestWebhookHandler()

	original := []byte(`{"event": "charge.success", "data": {"reference": "rq_ref"}}`)
	signature := signBody(testWebhookSecret, original)

	tampered := bytes.Replace(original, []byte("rq_ref"), []byte("rq_other"), 1)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(tampered))
	req.Header.Set("x-paystack-signature", signature)
	rr := httptest.NewRecorder()

	h.HandlePaystackWebhook(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhookFailsClosedWithoutSecret(t *testing.T) {
	h := NewWebhookHandler(services.NewPaymentService(nil, nil, nil), "")

	body := []byte(`{"event": "charge.success", "data": {"reference": "rq_ref"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", signBody("", body))
	rr := httptest.NewRecorder()

	h.HandlePaystackWebhook(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhookRejectsInvalidJSON(t *testing.T) {
	h := newTestWebhookHandler()

	body := []byte(`not json at all`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", signBody(testWebhookSecret, body))
	rr := httptest.NewRecorder()

	h.HandlePaystackWebhook(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookRejectsChargeSuccessWithoutReference(t *testing.T) {
	h := newTestWebhookHandler()

	body := []byte(`{"event": "charge.success", "data": {}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", signBody(testWebhookSecret, body))
	rr := httptest.NewRecorder()

	h.HandlePaystackWebhook(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhookAcknowledgesIgnoredEvents(t *testing.T) {
	h := newTestWebhookHandler()

	body := []byte(`{"event": "transfer.success", "data": {"reference": "rq_ref"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewReader(body))
	req.Header.Set("x-paystack-signature", signBody(testWebhookSecret, body))
	rr := httptest.NewRecorder()

	h.HandlePaystackWebhook(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "received", resp["status"])
}
