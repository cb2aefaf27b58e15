package repository

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zerox/internal/domain"
	"zerox/internal/errors"
	orderrepo "zerox/internal/order/repository"
	"zerox/internal/testutil"
)

func seedOrder(t *testing.T, db *sql.DB) *domain.Order {
	t.Helper()

	files := []domain.OrderFile{{
		StorageKey: "uploads/a", FileName: "a.pdf", Pages: 10,
		PrintType: domain.PrintTypeBW, PaperSize: domain.PaperSizeA4, Copies: 2, Sides: domain.SidesSingle,
	}}
	order := domain.NewOrder("cust-1", "shop-1", files, decimal.RequireFromString("40.00"), time.Now().UTC())
	require.NoError(t, orderrepo.NewMySQLOrderRepository(db).Create(context.Background(), order))
	return order
}

func newIntent(orderID, gatewayID string) *domain.PaymentIntent {
	return &domain.PaymentIntent{
		OrderID:        orderID,
		GatewayOrderID: gatewayID,
		AmountMinor:    4000,
		Currency:       "INR",
		CreatedAt:      time.Now().UTC(),
	}
}

// Unit Tests

func TestNewMySQLPaymentIntentRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLPaymentIntentRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

// Integration Tests

func TestPaymentIntentRepository_CreateAndFind(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	order := seedOrder(t, db)
	repo := NewMySQLPaymentIntentRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newIntent(order.ID, "order_gw1")))

	byOrder, err := repo.FindByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_gw1", byOrder.GatewayOrderID)
	assert.Equal(t, int64(4000), byOrder.AmountMinor)
	assert.False(t, byOrder.Verified)
	assert.Nil(t, byOrder.VerifiedAt)

	byGateway, err := repo.FindByGatewayOrderID(ctx, "order_gw1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, byGateway.OrderID)

	err = repo.Create(ctx, newIntent(order.ID, "order_gw2"))
	_, ok := errors.IsConflictError(err)
	assert.True(t, ok)
}

func TestPaymentIntentRepository_ConfirmPayment(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	order := seedOrder(t, db)
	repo := NewMySQLPaymentIntentRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newIntent(order.ID, "order_gw1")))

	already, err := repo.ConfirmPayment(ctx, "order_gw1", "pay_1", time.Now())
	require.NoError(t, err)
	assert.False(t, already)

	already, err = repo.ConfirmPayment(ctx, "order_gw1", "pay_1", time.Now())
	require.NoError(t, err)
	assert.True(t, already)

	intent, err := repo.FindByGatewayOrderID(ctx, "order_gw1")
	require.NoError(t, err)
	assert.True(t, intent.Verified)
	assert.Equal(t, "pay_1", intent.PaymentID)
	assert.NotNil(t, intent.VerifiedAt)

	var status string
	require.NoError(t, db.QueryRow(`SELECT status FROM Orders WHERE id = ?`, order.ID).Scan(&status))
	assert.Equal(t, "paid", status)
}

func TestPaymentIntentRepository_ConfirmPayment_CancelledOrder(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	order := seedOrder(t, db)
	repo := NewMySQLPaymentIntentRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newIntent(order.ID, "order_gw1")))
	_, err := db.Exec(`UPDATE Orders SET status = 'cancelled' WHERE id = ?`, order.ID)
	require.NoError(t, err)

	_, err = repo.ConfirmPayment(ctx, "order_gw1", "pay_1", time.Now())
	ce, ok := errors.IsConflictError(err)
	require.True(t, ok)
	assert.Equal(t, "cancelled", ce.Current)

	intent, err := repo.FindByGatewayOrderID(ctx, "order_gw1")
	require.NoError(t, err)
	assert.False(t, intent.Verified)
}

func TestPaymentIntentRepository_ConfirmPayment_Concurrent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	order := seedOrder(t, db)
	repo := NewMySQLPaymentIntentRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newIntent(order.ID, "order_gw1")))

	const deliveries = 2
	firsts := make([]bool, deliveries)
	errs := make([]error, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			already, err := repo.ConfirmPayment(ctx, "order_gw1", "pay_1", time.Now())
			firsts[i], errs[i] = !already, err
		}(i)
	}
	wg.Wait()

	confirmed := 0
	for i := range errs {
		require.NoError(t, errs[i])
		if firsts[i] {
			confirmed++
		}
	}
	assert.Equal(t, 1, confirmed)
}

func TestPaymentIntentRepository_ConfirmPayment_UnknownIntent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.SetupTestTables(t, db)
	defer testutil.CleanupTestDB(t, db)

	repo := NewMySQLPaymentIntentRepository(db)

	_, err := repo.ConfirmPayment(context.Background(), "order_missing", "pay_1", time.Now())
	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
}
