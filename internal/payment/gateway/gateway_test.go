package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerox/internal/config"
	"zerox/internal/errors"
)

func newTestClient(url string) *Client {
	return NewClient(config.GatewayConfig{
		BaseURL:   url,
		KeyID:     "rzp_test_key",
		KeySecret: "secret",
		Currency:  "INR",
		Timeout:   time.Second,
	})
}

func TestCreateOrder_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "secret", pass)

		var body createOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(4000), body.Amount)
		assert.Equal(t, "INR", body.Currency)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_abc","amount":4000,"currency":"INR","receipt":"o-1","status":"created"}`))
	}))
	defer srv.Close()

	order, err := newTestClient(srv.URL).CreateOrder(context.Background(), 4000, "o-1")
	require.NoError(t, err)
	assert.Equal(t, "order_abc", order.ID)
	assert.Equal(t, int64(4000), order.Amount)
}

func TestCreateOrder_ServerErrorIsUpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateOrder(context.Background(), 4000, "o-1")
	_, ok := errors.IsUpstreamUnavailableError(err)
	assert.True(t, ok)
}

func TestCreateOrder_TimeoutIsUpstreamUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv.URL).CreateOrder(ctx, 4000, "o-1")
	_, ok := errors.IsUpstreamUnavailableError(err)
	assert.True(t, ok)
}

func TestCreateOrder_RejectedIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateOrder(context.Background(), 1, "o-1")
	require.Error(t, err)
	_, ok := errors.IsUpstreamUnavailableError(err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "amount too small")
}

func TestSignatureVerifier(t *testing.T) {
	v := NewSignatureVerifier("secret")
	sig := v.Sign("order_abc", "pay_xyz")

	assert.Len(t, sig, 64)
	assert.True(t, v.Verify("order_abc", "pay_xyz", sig))
	assert.False(t, v.Verify("order_abc", "pay_other", sig))
	assert.False(t, v.Verify("order_abc", "pay_xyz", "zz"))
	assert.False(t, NewSignatureVerifier("other").Verify("order_abc", "pay_xyz", sig))
}
