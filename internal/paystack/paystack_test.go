package paystack

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success","data":{"reference":"rq_user_monthly_1"}}`)

	assert.True(t, VerifySignature(secret, body, sign(secret, body)))
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success","data":{"reference":"rq_user_monthly_1"}}`)
	signature := sign(secret, body)

	tampered := make([]byte, len(body))
	copy(tampered, body)
	tampered[len(tampered)-2] ^= 0x01

	assert.False(t, VerifySignature(secret, tampered, signature))
}

func TestVerifySignatureRejectsTamperedSignature(t *testing.T) {
	secret := "sk_test_secret"
	body := []byte(`{"event":"charge.success"}`)
	signature := sign(secret, body)

	bad := []byte(signature)
	if bad[0] == 'a' {
		bad[0] = 'b'
	} else {
		bad[0] = 'a'
	}

	assert.False(t, VerifySignature(secret, body, string(bad)))
}

func TestVerifySignatureFailsClosedWithoutSecret(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)

	assert.False(t, VerifySignature("", body, sign("", body)))
	assert.False(t, VerifySignature("", body, ""))
}

func TestVerifySignatureRejectsEmptySignature(t *testing.T) {
	assert.False(t, VerifySignature("secret", []byte(`{}`), ""))
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]string{
		"success":    "success",
		"pending":    "pending",
		"ongoing":    "pending",
		"processing": "pending",
		"queued":     "pending",
		"failed":     "failed",
		"abandoned":  "failed",
		"reversed":   "failed",
		"":           "failed",
		"weird":      "failed",
	}

	for in, want := range cases {
		assert.Equal(t, want, NormalizeStatus(in), "input %q", in)
	}
}

func TestClientVerify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/rq_ref_1", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {"id": 42, "status": "abandoned", "reference": "rq_ref_1", "amount": 299, "currency": "NGN"}
		}`))
	}))
	defer server.Close()

	client := NewClient("sk_test_key", server.URL)

	tx, err := client.Verify(context.Background(), "rq_ref_1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), tx.ID)
	assert.Equal(t, "failed", tx.Status)
	assert.Equal(t, "rq_ref_1", tx.Reference)
	assert.Equal(t, int64(299), tx.Amount)
}

func TestClientVerifyUnavailableOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient("sk_test_key", server.URL)

	_, err := client.Verify(context.Background(), "rq_ref_1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClientVerifyUnavailableOnFalseEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": false, "message": "Transaction reference not found"}`))
	}))
	defer server.Close()

	client := NewClient("sk_test_key", server.URL)

	_, err := client.Verify(context.Background(), "rq_missing")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClientInitialize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)

		w.Write([]byte(`{
			"status": true,
			"message": "Authorization URL created",
			"data": {"authorization_url": "https://checkout.paystack.com/abc123", "access_code": "abc123", "reference": "rq_ref_2"}
		}`))
	}))
	defer server.Close()

	client := NewClient("sk_test_key", server.URL)

	result, err := client.Initialize(context.Background(), &InitializeRequest{
		Email:     "user@example.com",
		Amount:    299,
		Currency:  "NGN",
		Reference: "rq_ref_2",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.paystack.com/abc123", result.AuthorizationURL)
	assert.Equal(t, "abc123", result.AccessCode)
	assert.Equal(t, "rq_ref_2", result.Reference)
}

func TestClientRequiresSecretKey(t *testing.T) {
	client := NewClient("", "")

	_, err := client.Verify(context.Background(), "rq_ref")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = client.Initialize(context.Background(), &InitializeRequest{})
	assert.ErrorIs(t, err, ErrUnavailable)
}
