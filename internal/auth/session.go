package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"zerox/internal/commons"
	"zerox/internal/domain"
	"zerox/internal/dto"
	"zerox/internal/infrastructure/logger"
)

// SessionClaims is what the identity provider signs into a session token.
type SessionClaims struct {
	Role   string `json:"role"`
	ShopID string `json:"shop_id,omitempty"`
	jwt.RegisteredClaims
}

type principalKey struct{}

// SessionVerifier turns bearer session tokens into principals.
type SessionVerifier struct {
	secret []byte
	issuer string
	logger *zap.Logger
}

func NewSessionVerifier(secret, issuer string, logger *zap.Logger) *SessionVerifier {
	return &SessionVerifier{secret: []byte(secret), issuer: issuer, logger: logger}
}

func (v *SessionVerifier) Verify(tokenStr string) (domain.Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims SessionClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("parsing session token: %w", err)
	}

	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return domain.Principal{}, fmt.Errorf("unsupported role %q", claims.Role)
	}
	if claims.Subject == "" {
		return domain.Principal{}, fmt.Errorf("session token has no subject")
	}
	if role == domain.RoleShop && claims.ShopID == "" {
		return domain.Principal{}, fmt.Errorf("shop session without shop_id")
	}

	return domain.Principal{UserID: claims.Subject, Role: role, ShopID: claims.ShopID}, nil
}

// Middleware rejects requests without a valid session with 401.
func (v *SessionVerifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(logger.TraceHeader)

		tokenStr, ok := bearerToken(r)
		if !ok {
			writeUnauthorized(w, traceID, "missing bearer token", v.logger)
			return
		}

		principal, err := v.Verify(tokenStr)
		if err != nil {
			v.logger.Warn("session rejected", zap.String("traceId", traceID), zap.Error(err))
			writeUnauthorized(w, traceID, "invalid session", v.logger)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom extracts the principal stored by Middleware.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func writeUnauthorized(w http.ResponseWriter, traceID, message string, logger *zap.Logger) {
	commons.WriteJSON(w, http.StatusUnauthorized, dto.ErrorResponse{
		TraceID:   traceID,
		Status:    http.StatusUnauthorized,
		Code:      "UNAUTHORIZED",
		Message:   message,
		Timestamp: time.Now().UTC(),
	}, logger)
}
