package service

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zerox/internal/domain"
	"zerox/internal/errors"
	"zerox/internal/infrastructure/memory"
	"zerox/internal/payment/gateway"
)

const testSecret = "gateway-secret"

type mockGateway struct {
	CreateOrderFunc func(ctx context.Context, amountMinor int64, receipt string) (*gateway.Order, error)
	calls           int32
}

func (m *mockGateway) CreateOrder(ctx context.Context, amountMinor int64, receipt string) (*gateway.Order, error) {
	atomic.AddInt32(&m.calls, 1)
	return m.CreateOrderFunc(ctx, amountMinor, receipt)
}

func (m *mockGateway) PublicKey() string { return "rzp_test_key" }

func (m *mockGateway) Currency() string { return "INR" }

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.StatusChanged
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, e domain.StatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	store     *memory.Store
	gateway   *mockGateway
	events    *recordingPublisher
	signer    *gateway.SignatureVerifier
	svc       *Reconciler
	order     *domain.Order
	customer  domain.Principal
	persisted func() *domain.Order
}

func newFixture(t *testing.T, total string) *fixture {
	t.Helper()

	store := memory.NewStore()
	files := []domain.OrderFile{{
		StorageKey: "k1", FileName: "a.pdf", Pages: 10,
		PrintType: domain.PrintTypeBW, PaperSize: domain.PaperSizeA4, Copies: 2, Sides: domain.SidesSingle,
	}}
	order := domain.NewOrder("cust-1", "shop-1", files, decimal.RequireFromString(total), time.Now())
	require.NoError(t, store.Orders().Create(context.Background(), order))

	gw := &mockGateway{CreateOrderFunc: func(ctx context.Context, amountMinor int64, receipt string) (*gateway.Order, error) {
		return &gateway.Order{ID: "order_gw_" + receipt, Amount: amountMinor, Currency: "INR", Receipt: receipt}, nil
	}}
	events := &recordingPublisher{}
	signer := gateway.NewSignatureVerifier(testSecret)
	svc := NewReconciler(store.Orders(), store.PaymentIntents(), gw, signer, events, zap.NewNop())

	f := &fixture{
		store:    store,
		gateway:  gw,
		events:   events,
		signer:   signer,
		svc:      svc,
		order:    order,
		customer: domain.Principal{UserID: "cust-1", Role: domain.RoleCustomer},
	}
	f.persisted = func() *domain.Order {
		o, err := store.Orders().FindByID(context.Background(), order.ID)
		require.NoError(t, err)
		return o
	}
	return f
}

func (f *fixture) callback(gatewayOrderID string) Callback {
	return Callback{
		GatewayOrderID: gatewayOrderID,
		PaymentID:      "pay_1",
		Signature:      f.signer.Sign(gatewayOrderID, "pay_1"),
	}
}

func TestInitiate_CreatesIntentInMinorUnits(t *testing.T) {
	f := newFixture(t, "40.00")

	started, err := f.svc.Initiate(context.Background(), f.customer, f.order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), started.AmountMinorUnits)
	assert.Equal(t, "rzp_test_key", started.PublicKey)
	assert.Equal(t, "INR", started.Currency)

	intent, err := f.store.PaymentIntents().FindByOrderID(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.False(t, intent.Verified)
	assert.Equal(t, started.GatewayOrderID, intent.GatewayOrderID)
}

func TestInitiate_IsIdempotent(t *testing.T) {
	f := newFixture(t, "40.00")

	first, err := f.svc.Initiate(context.Background(), f.customer, f.order.ID)
	require.NoError(t, err)
	second, err := f.svc.Initiate(context.Background(), f.customer, f.order.ID)
	require.NoError(t, err)

	assert.Equal(t, first.GatewayOrderID, second.GatewayOrderID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.gateway.calls))
}

func TestInitiate_ConcurrentCallsConverge(t *testing.T) {
	f := newFixture(t, "40.00")
	var n int32
	f.gateway.CreateOrderFunc = func(ctx context.Context, amountMinor int64, receipt string) (*gateway.Order, error) {
		id := atomic.AddInt32(&n, 1)
		return &gateway.Order{ID: "order_gw_" + string(rune('a'+id))}, nil
	}

	const callers = 4
	results := make([]*Initiation, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.Initiate(context.Background(), f.customer, f.order.ID)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Equal(t, results[0].GatewayOrderID, r.GatewayOrderID)
	}
}

func TestInitiate_NotPendingIsInvalidState(t *testing.T) {
	f := newFixture(t, "40.00")
	require.NoError(t, f.store.Orders().CompareAndSwapStatus(context.Background(), f.order.ID, domain.StatusPending, domain.StatusCancelled))

	_, err := f.svc.Initiate(context.Background(), f.customer, f.order.ID)

	ise, ok := errors.IsInvalidStateError(err)
	require.True(t, ok)
	assert.Equal(t, "cancelled", ise.Current)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.gateway.calls))
}

func TestInitiate_OnlyOwningCustomer(t *testing.T) {
	f := newFixture(t, "40.00")

	for _, p := range []domain.Principal{
		{UserID: "cust-2", Role: domain.RoleCustomer},
		{UserID: "shop-user", Role: domain.RoleShop, ShopID: "shop-1"},
	} {
		_, err := f.svc.Initiate(context.Background(), p, f.order.ID)
		_, ok := errors.IsForbiddenError(err)
		assert.True(t, ok)
	}
}

func TestInitiate_GatewayDownLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t, "40.00")
	f.gateway.CreateOrderFunc = func(ctx context.Context, amountMinor int64, receipt string) (*gateway.Order, error) {
		return nil, errors.NewUpstreamUnavailableError("payment gateway unreachable", context.DeadlineExceeded)
	}

	_, err := f.svc.Initiate(context.Background(), f.customer, f.order.ID)

	_, ok := errors.IsUpstreamUnavailableError(err)
	assert.True(t, ok)
	assert.Equal(t, domain.StatusPending, f.persisted().Status)
	_, err = f.store.PaymentIntents().FindByOrderID(context.Background(), f.order.ID)
	_, ok = errors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestInitiate_SubMinorTotalRejected(t *testing.T) {
	f := newFixture(t, "40.005")

	_, err := f.svc.Initiate(context.Background(), f.customer, f.order.ID)

	_, ok := errors.IsValidationError(err)
	assert.True(t, ok)
}

func TestVerify_MarksPaidOnce(t *testing.T) {
	f := newFixture(t, "40.00")
	started, err := f.svc.Initiate(context.Background(), f.customer, f.order.ID)
	require.NoError(t, err)

	first, err := f.svc.Verify(context.Background(), f.callback(started.GatewayOrderID))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, first.Status)
	assert.False(t, first.AlreadyVerified)

	second, err := f.svc.Verify(context.Background(), f.callback(started.GatewayOrderID))
	require.NoError(t, err)
	assert.True(t, second.AlreadyVerified)
	assert.Equal(t, domain.StatusPaid, second.Status)

	assert.Equal(t, domain.StatusPaid, f.persisted().Status)
	assert.Len(t, f.events.events, 1)
	assert.Equal(t, domain.RoleSystem, f.events.events[0].Actor)
}

func TestVerify_ConcurrentDeliveriesConverge(t *testing.T) {
	f := newFixture(t, "40.00")
	started, err := f.svc.Initiate(context.Background(), f.customer, f.order.ID)
	require.NoError(t, err)

	const deliveries = 2
	results := make([]*Verification, deliveries)
	errs := make([]error, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Verify(context.Background(), f.callback(started.GatewayOrderID))
		}(i)
	}
	wg.Wait()

	applied := 0
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, domain.StatusPaid, results[i].Status)
		if !results[i].AlreadyVerified {
			applied++
		}
	}
	assert.Equal(t, 1, applied)
	assert.Len(t, f.events.events, 1)

	intent, err := f.store.PaymentIntents().FindByOrderID(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.True(t, intent.Verified)
}

func TestVerify_SignatureMismatchKeepsPending(t *testing.T) {
	f := newFixture(t, "40.00")
	started, err := f.svc.Initiate(context.Background(), f.customer, f.order.ID)
	require.NoError(t, err)

	cb := f.callback(started.GatewayOrderID)
	cb.Signature = gateway.NewSignatureVerifier("wrong").Sign(started.GatewayOrderID, "pay_1")

	_, err = f.svc.Verify(context.Background(), cb)

	sme, ok := errors.IsSignatureMismatchError(err)
	require.True(t, ok)
	assert.Equal(t, started.GatewayOrderID, sme.GatewayOrderID)
	assert.Equal(t, domain.StatusPending, f.persisted().Status)
}

func TestVerify_AmountMismatch(t *testing.T) {
	f := newFixture(t, "40.00")
	require.NoError(t, f.store.PaymentIntents().Create(context.Background(), &domain.PaymentIntent{
		OrderID: f.order.ID, GatewayOrderID: "order_tampered", AmountMinor: 100, Currency: "INR",
	}))

	_, err := f.svc.Verify(context.Background(), f.callback("order_tampered"))

	_, ok := errors.IsSignatureMismatchError(err)
	assert.True(t, ok)
	assert.Equal(t, domain.StatusPending, f.persisted().Status)
}

func TestVerify_CancelledOrderCannotBePaid(t *testing.T) {
	f := newFixture(t, "40.00")
	started, err := f.svc.Initiate(context.Background(), f.customer, f.order.ID)
	require.NoError(t, err)
	require.NoError(t, f.store.Orders().CompareAndSwapStatus(context.Background(), f.order.ID, domain.StatusPending, domain.StatusCancelled))

	_, err = f.svc.Verify(context.Background(), f.callback(started.GatewayOrderID))

	_, ok := errors.IsInvalidTransitionError(err)
	assert.True(t, ok)
	intent, _ := f.store.PaymentIntents().FindByOrderID(context.Background(), f.order.ID)
	assert.False(t, intent.Verified)
}

func TestVerify_UnknownIntent(t *testing.T) {
	f := newFixture(t, "40.00")

	_, err := f.svc.Verify(context.Background(), f.callback("order_unknown"))

	_, ok := errors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestVerify_MissingFields(t *testing.T) {
	f := newFixture(t, "40.00")

	_, err := f.svc.Verify(context.Background(), Callback{GatewayOrderID: "order_x"})

	ve, ok := errors.IsValidationError(err)
	require.True(t, ok)
	assert.Len(t, ve.Details, 2)
}

type deadlockingIntents struct {
	PaymentIntentRepository
	failures int
}

func (d *deadlockingIntents) ConfirmPayment(ctx context.Context, gatewayOrderID, paymentID string, at time.Time) (bool, error) {
	if d.failures > 0 {
		d.failures--
		return false, &mysql.MySQLError{Number: 1213}
	}
	return d.PaymentIntentRepository.ConfirmPayment(ctx, gatewayOrderID, paymentID, at)
}

func TestVerify_RetriesDeadlock(t *testing.T) {
	f := newFixture(t, "40.00")
	started, err := f.svc.Initiate(context.Background(), f.customer, f.order.ID)
	require.NoError(t, err)
	f.svc.intentRepo = &deadlockingIntents{PaymentIntentRepository: f.store.PaymentIntents(), failures: 1}

	res, err := f.svc.Verify(context.Background(), f.callback(started.GatewayOrderID))

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, res.Status)
}

func TestVerify_GivesUpAfterRepeatedDeadlocks(t *testing.T) {
	f := newFixture(t, "40.00")
	started, err := f.svc.Initiate(context.Background(), f.customer, f.order.ID)
	require.NoError(t, err)
	f.svc.intentRepo = &deadlockingIntents{PaymentIntentRepository: f.store.PaymentIntents(), failures: 10}

	_, err = f.svc.Verify(context.Background(), f.callback(started.GatewayOrderID))

	var mysqlErr *mysql.MySQLError
	assert.True(t, stderrors.As(err, &mysqlErr))
	assert.Equal(t, domain.StatusPending, f.persisted().Status)
}
