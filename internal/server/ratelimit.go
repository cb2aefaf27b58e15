package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"zerox/internal/commons"
	"zerox/internal/dto"
)

const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientRateLimiter keeps one token bucket per client IP.
type ClientRateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	rps      rate.Limit
	burst    int
	lastScan time.Time
	now      func() time.Time
	logger   *zap.Logger
}

func NewClientRateLimiter(rps float64, burst int, logger *zap.Logger) *ClientRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ClientRateLimiter{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		logger:  logger,
	}
}

func (l *ClientRateLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastScan) > limiterIdleTTL {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > limiterIdleTTL {
				delete(l.clients, k)
			}
		}
		l.lastScan = now
	}

	c, ok := l.clients[client]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[client] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (l *ClientRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)
		if l.Allow(client) {
			next.ServeHTTP(w, r)
			return
		}

		traceID := commons.TraceID(r)
		l.logger.Warn("rate limit exceeded", zap.String("traceId", traceID), zap.String("client", client), zap.String("path", r.URL.Path))
		w.Header().Set("Retry-After", "1")
		commons.WriteJSON(w, http.StatusTooManyRequests, dto.ErrorResponse{
			TraceID:   traceID,
			Status:    http.StatusTooManyRequests,
			Code:      "RATE_LIMITED",
			Message:   "too many requests",
			Timestamp: time.Now().UTC(),
		}, l.logger)
	})
}

// clientIP is the transport peer. Forwarding headers are client controlled
// and are ignored.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
