package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"zerox/internal/domain"
	"zerox/internal/errors"
)

type Scope string

const (
	ScopeUpload   Scope = "upload"
	ScopeDownload Scope = "download"
)

const (
	tokenIssuer   = "zerox-broker"
	tokenAudience = "storage-worker"
)

// CapabilityClaims authorize exactly one storage operation.
type CapabilityClaims struct {
	Scope      Scope  `json:"scope"`
	StorageKey string `json:"key"`
	jwt.RegisteredClaims
}

// Grant is a bearer capability the client presents to the storage worker.
type Grant struct {
	Token      string
	TargetURI  string
	StorageKey string
	ExpiresAt  time.Time
}

type Redemption struct {
	Scope      Scope
	Subject    string
	StorageKey string
}

type OrderRepository interface {
	ListByStorageKey(ctx context.Context, storageKey string) ([]domain.Order, error)
}

// Ledger remembers consumed token ids.
type Ledger interface {
	Consume(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

type Broker struct {
	orderRepo OrderRepository
	ledger    Ledger
	secret    []byte
	workerURL string
	ttl       time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

func NewBroker(orderRepo OrderRepository, ledger Ledger, secret, workerURL string, ttl time.Duration, logger *zap.Logger) *Broker {
	return &Broker{
		orderRepo: orderRepo,
		ledger:    ledger,
		secret:    []byte(secret),
		workerURL: strings.TrimRight(workerURL, "/"),
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
	}
}

// RequestUploadGrant reserves a fresh storage key for the caller and signs a
// write capability for it.
func (b *Broker) RequestUploadGrant(ctx context.Context, principal domain.Principal) (*Grant, error) {
	if principal.Role != domain.RoleCustomer || principal.UserID == "" {
		return nil, errors.NewForbiddenError("only customers upload files")
	}

	key := domain.UploadKey(principal.UserID, uuid.NewString())
	grant, err := b.sign(ScopeUpload, principal.UserID, key, b.workerURL+"/upload")
	if err != nil {
		return nil, err
	}

	b.logger.Info("upload grant issued", zap.String("userId", principal.UserID), zap.String("storageKey", key))
	return grant, nil
}

// RequestDownloadGrant authorizes against the orders that reference the key,
// never the key itself.
func (b *Broker) RequestDownloadGrant(ctx context.Context, principal domain.Principal, storageKey string) (*Grant, error) {
	storageKey = strings.TrimSpace(storageKey)
	if storageKey == "" {
		return nil, errors.NewValidationError("validation failed", errors.ValidationDetail{
			Field:   "storage_key",
			Message: "storage_key is required",
		})
	}

	orders, err := b.orderRepo.ListByStorageKey(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("looking up orders for file: %w", err)
	}

	allowed := false
	for i := range orders {
		if principal.CanAccess(&orders[i]) {
			allowed = true
			break
		}
	}
	if !allowed {
		b.logger.Warn("download grant denied", zap.String("userId", principal.UserID), zap.String("role", string(principal.Role)), zap.String("storageKey", storageKey))
		return nil, errors.NewForbiddenError("file is not part of an order the caller belongs to")
	}

	grant, err := b.sign(ScopeDownload, principal.UserID, storageKey, b.workerURL+"/files/"+url.PathEscape(storageKey))
	if err != nil {
		return nil, err
	}

	b.logger.Info("download grant issued", zap.String("userId", principal.UserID), zap.String("storageKey", storageKey))
	return grant, nil
}

// Redeem validates a capability for the storage worker and burns it. A
// token is accepted at most once.
func (b *Broker) Redeem(ctx context.Context, token string) (*Redemption, error) {
	var claims CapabilityClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return b.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(b.now),
	)
	if err != nil {
		return nil, errors.NewForbiddenError("capability token is invalid or expired")
	}
	if claims.Scope != ScopeUpload && claims.Scope != ScopeDownload {
		return nil, errors.NewForbiddenError("capability token has unknown scope")
	}
	if claims.ID == "" || claims.StorageKey == "" {
		return nil, errors.NewForbiddenError("capability token is incomplete")
	}

	remaining := claims.ExpiresAt.Sub(b.now())
	if remaining < time.Second {
		remaining = time.Second
	}
	first, err := b.ledger.Consume(ctx, claims.ID, remaining)
	if err != nil {
		return nil, errors.NewUpstreamUnavailableError("token ledger unavailable", err)
	}
	if !first {
		b.logger.Warn("capability token replayed", zap.String("jti", claims.ID), zap.String("subject", claims.Subject))
		return nil, errors.NewForbiddenError("capability token already used")
	}

	return &Redemption{Scope: claims.Scope, Subject: claims.Subject, StorageKey: claims.StorageKey}, nil
}

func (b *Broker) sign(scope Scope, subject, storageKey, target string) (*Grant, error) {
	now := b.now()
	expires := now.Add(b.ttl)

	claims := CapabilityClaims{
		Scope:      scope,
		StorageKey: storageKey,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return nil, fmt.Errorf("signing capability token: %w", err)
	}

	return &Grant{Token: token, TargetURI: target, StorageKey: storageKey, ExpiresAt: expires.UTC()}, nil
}
