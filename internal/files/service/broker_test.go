package service

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zerox/internal/domain"
	"zerox/internal/errors"
	"zerox/internal/infrastructure/memory"
)

const testSecret = "transfer-secret"

type mockOrderRepository struct {
	ListByStorageKeyFunc func(ctx context.Context, storageKey string) ([]domain.Order, error)
}

func (m *mockOrderRepository) ListByStorageKey(ctx context.Context, storageKey string) ([]domain.Order, error) {
	return m.ListByStorageKeyFunc(ctx, storageKey)
}

type mockLedger struct {
	ConsumeFunc func(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

func (m *mockLedger) Consume(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return m.ConsumeFunc(ctx, id, ttl)
}

func seededBroker(t *testing.T) (*Broker, *domain.Order) {
	t.Helper()

	store := memory.NewStore()
	order := domain.NewOrder("cust-1", "shop-1", []domain.OrderFile{{
		StorageKey: "uploads/cust-1/thesis",
		FileName:   "thesis.pdf",
		Pages:      10,
		PrintType:  domain.PrintTypeBW,
		PaperSize:  domain.PaperSizeA4,
		Copies:     1,
		Sides:      domain.SidesSingle,
	}}, decimal.RequireFromString("20.00"), time.Now().UTC())
	require.NoError(t, store.Orders().Create(context.Background(), order))

	broker := NewBroker(store.Orders(), memory.NewLedger(), testSecret, "https://worker.example/", 2*time.Minute, zap.NewNop())
	return broker, order
}

func TestBroker_RequestUploadGrant(t *testing.T) {
	broker, _ := seededBroker(t)

	grant, err := broker.RequestUploadGrant(context.Background(), domain.Principal{UserID: "cust-1", Role: domain.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, "https://worker.example/upload", grant.TargetURI)
	assert.True(t, strings.HasPrefix(grant.StorageKey, "uploads/cust-1/"))
	assert.WithinDuration(t, time.Now().Add(2*time.Minute), grant.ExpiresAt, 5*time.Second)

	redeemed, err := broker.Redeem(context.Background(), grant.Token)
	require.NoError(t, err)
	assert.Equal(t, ScopeUpload, redeemed.Scope)
	assert.Equal(t, "cust-1", redeemed.Subject)
	assert.Equal(t, grant.StorageKey, redeemed.StorageKey)
}

func TestBroker_RequestUploadGrant_ShopForbidden(t *testing.T) {
	broker, _ := seededBroker(t)

	_, err := broker.RequestUploadGrant(context.Background(), domain.Principal{UserID: "owner", Role: domain.RoleShop, ShopID: "shop-1"})
	_, ok := errors.IsForbiddenError(err)
	assert.True(t, ok)
}

func TestBroker_RequestDownloadGrant_Parties(t *testing.T) {
	broker, order := seededBroker(t)
	key := order.Files[0].StorageKey

	tests := []struct {
		name      string
		principal domain.Principal
		allowed   bool
	}{
		{"owning customer", domain.Principal{UserID: "cust-1", Role: domain.RoleCustomer}, true},
		{"fulfilling shop", domain.Principal{UserID: "owner", Role: domain.RoleShop, ShopID: "shop-1"}, true},
		{"other customer", domain.Principal{UserID: "cust-2", Role: domain.RoleCustomer}, false},
		{"other shop", domain.Principal{UserID: "owner-2", Role: domain.RoleShop, ShopID: "shop-2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grant, err := broker.RequestDownloadGrant(context.Background(), tt.principal, key)
			if !tt.allowed {
				_, ok := errors.IsForbiddenError(err)
				assert.True(t, ok, "expected forbidden, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://worker.example/files/uploads%2Fcust-1%2Fthesis", grant.TargetURI)
			assert.Equal(t, key, grant.StorageKey)
		})
	}
}

func TestBroker_RequestDownloadGrant_UnknownKeyForbidden(t *testing.T) {
	broker, _ := seededBroker(t)

	_, err := broker.RequestDownloadGrant(context.Background(), domain.Principal{UserID: "cust-1", Role: domain.RoleCustomer}, "uploads/nobody/x")
	_, ok := errors.IsForbiddenError(err)
	assert.True(t, ok)
}

func TestBroker_RequestDownloadGrant_EmptyKey(t *testing.T) {
	broker, _ := seededBroker(t)

	_, err := broker.RequestDownloadGrant(context.Background(), domain.Principal{UserID: "cust-1", Role: domain.RoleCustomer}, "  ")
	ve, ok := errors.IsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "storage_key", ve.Details[0].Field)
}

func TestBroker_RequestDownloadGrant_LookupFailure(t *testing.T) {
	repo := &mockOrderRepository{
		ListByStorageKeyFunc: func(ctx context.Context, storageKey string) ([]domain.Order, error) {
			return nil, stderrors.New("connection refused")
		},
	}
	broker := NewBroker(repo, memory.NewLedger(), testSecret, "https://worker.example", time.Minute, zap.NewNop())

	_, err := broker.RequestDownloadGrant(context.Background(), domain.Principal{UserID: "cust-1", Role: domain.RoleCustomer}, "k")
	require.Error(t, err)
	_, forbidden := errors.IsForbiddenError(err)
	assert.False(t, forbidden)
}

func TestBroker_Redeem_SingleUse(t *testing.T) {
	broker, _ := seededBroker(t)
	grant, err := broker.RequestUploadGrant(context.Background(), domain.Principal{UserID: "cust-1", Role: domain.RoleCustomer})
	require.NoError(t, err)

	_, err = broker.Redeem(context.Background(), grant.Token)
	require.NoError(t, err)

	_, err = broker.Redeem(context.Background(), grant.Token)
	_, ok := errors.IsForbiddenError(err)
	assert.True(t, ok)
}

func TestBroker_Redeem_ConcurrentSingleWinner(t *testing.T) {
	broker, _ := seededBroker(t)
	grant, err := broker.RequestUploadGrant(context.Background(), domain.Principal{UserID: "cust-1", Role: domain.RoleCustomer})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := broker.Redeem(context.Background(), grant.Token); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestBroker_Redeem_Expired(t *testing.T) {
	broker, _ := seededBroker(t)
	grant, err := broker.RequestUploadGrant(context.Background(), domain.Principal{UserID: "cust-1", Role: domain.RoleCustomer})
	require.NoError(t, err)

	broker.now = func() time.Time { return time.Now().Add(3 * time.Minute) }

	_, err = broker.Redeem(context.Background(), grant.Token)
	_, ok := errors.IsForbiddenError(err)
	assert.True(t, ok)
}

func TestBroker_Redeem_RejectsForeignTokens(t *testing.T) {
	broker, _ := seededBroker(t)

	sign := func(secret string, claims CapabilityClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	valid := func() CapabilityClaims {
		return CapabilityClaims{
			Scope:      ScopeDownload,
			StorageKey: "k",
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        "jti-1",
				Subject:   "cust-1",
				Issuer:    tokenIssuer,
				Audience:  jwt.ClaimStrings{tokenAudience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}
	}

	wrongScope := valid()
	wrongScope.Scope = "delete"
	noID := valid()
	noID.ID = ""
	wrongAudience := valid()
	wrongAudience.Audience = jwt.ClaimStrings{"someone-else"}
	noExpiry := valid()
	noExpiry.ExpiresAt = nil

	tokens := map[string]string{
		"wrong secret":   sign("other-secret", valid()),
		"wrong scope":    sign(testSecret, wrongScope),
		"missing jti":    sign(testSecret, noID),
		"wrong audience": sign(testSecret, wrongAudience),
		"no expiry":      sign(testSecret, noExpiry),
		"garbage":        "not-a-token",
	}

	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			_, err := broker.Redeem(context.Background(), token)
			_, ok := errors.IsForbiddenError(err)
			assert.True(t, ok, "expected forbidden, got %v", err)
		})
	}
}

func TestBroker_Redeem_LedgerDown(t *testing.T) {
	ledger := &mockLedger{
		ConsumeFunc: func(ctx context.Context, id string, ttl time.Duration) (bool, error) {
			return false, stderrors.New("redis: connection refused")
		},
	}
	broker := NewBroker(&mockOrderRepository{}, ledger, testSecret, "https://worker.example", time.Minute, zap.NewNop())
	grant, err := broker.RequestUploadGrant(context.Background(), domain.Principal{UserID: "cust-1", Role: domain.RoleCustomer})
	require.NoError(t, err)

	_, err = broker.Redeem(context.Background(), grant.Token)
	_, ok := errors.IsUpstreamUnavailableError(err)
	assert.True(t, ok)
}

func TestBroker_Redeem_LedgerTTLTracksExpiry(t *testing.T) {
	var gotTTL time.Duration
	ledger := &mockLedger{
		ConsumeFunc: func(ctx context.Context, id string, ttl time.Duration) (bool, error) {
			gotTTL = ttl
			return true, nil
		},
	}
	broker := NewBroker(&mockOrderRepository{}, ledger, testSecret, "https://worker.example", 2*time.Minute, zap.NewNop())
	grant, err := broker.RequestUploadGrant(context.Background(), domain.Principal{UserID: "cust-1", Role: domain.RoleCustomer})
	require.NoError(t, err)

	_, err = broker.Redeem(context.Background(), grant.Token)
	require.NoError(t, err)
	assert.InDelta(t, (2 * time.Minute).Seconds(), gotTTL.Seconds(), 2)
}
