package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestClientRateLimiter_PerClientBuckets(t *testing.T) {
	l := NewClientRateLimiter(1, 1, zap.NewNop())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"))
}

func TestClientRateLimiter_EvictsIdleClients(t *testing.T) {
	l := NewClientRateLimiter(1, 1, zap.NewNop())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(2 * limiterIdleTTL)
	l.Allow("b")

	assert.Len(t, l.clients, 1)
	assert.Contains(t, l.clients, "b")
}

func TestClientIP_UsesPeerAddress(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/verify", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")

	assert.Equal(t, "203.0.113.9", clientIP(req))
}
