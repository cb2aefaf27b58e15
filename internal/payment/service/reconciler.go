package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"zerox/internal/domain"
	"zerox/internal/errors"
	"zerox/internal/infrastructure/mysql"
	"zerox/internal/payment/gateway"
)

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
}

type PaymentIntentRepository interface {
	Create(ctx context.Context, intent *domain.PaymentIntent) error
	FindByOrderID(ctx context.Context, orderID string) (*domain.PaymentIntent, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.PaymentIntent, error)
	ConfirmPayment(ctx context.Context, gatewayOrderID, paymentID string, at time.Time) (bool, error)
}

type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, receipt string) (*gateway.Order, error)
	PublicKey() string
	Currency() string
}

type SignatureVerifier interface {
	Verify(gatewayOrderID, paymentID, signature string) bool
}

type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event domain.StatusChanged) error
}

// Initiation is what the checkout widget needs to collect a payment.
type Initiation struct {
	OrderID          string
	GatewayOrderID   string
	AmountMinorUnits int64
	Currency         string
	PublicKey        string
}

// Callback is the gateway's post-checkout delivery.
type Callback struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

func (cb Callback) missingFields() []errors.ValidationDetail {
	var details []errors.ValidationDetail
	fields := []struct{ name, value string }{
		{"razorpay_order_id", cb.GatewayOrderID},
		{"razorpay_payment_id", cb.PaymentID},
		{"razorpay_signature", cb.Signature},
	}
	for _, f := range fields {
		if f.value == "" {
			details = append(details, errors.ValidationDetail{Field: f.name, Message: f.name + " is required"})
		}
	}
	return details
}

type Verification struct {
	OrderID         string
	Status          domain.Status
	AlreadyVerified bool
}

// Reconciler is the only path from pending to paid.
type Reconciler struct {
	orderRepo        OrderRepository
	intentRepo       PaymentIntentRepository
	gateway          Gateway
	verifier         SignatureVerifier
	events           EventPublisher
	logger           *zap.Logger
	maxRetryAttempts int
	now              func() time.Time
}

func NewReconciler(
	orderRepo OrderRepository,
	intentRepo PaymentIntentRepository,
	gw Gateway,
	verifier SignatureVerifier,
	events EventPublisher,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		orderRepo:        orderRepo,
		intentRepo:       intentRepo,
		gateway:          gw,
		verifier:         verifier,
		events:           events,
		logger:           logger,
		maxRetryAttempts: 3,
		now:              time.Now,
	}
}

// Initiate creates the gateway order for a pending order. An existing intent
// is returned as is, so retries never open a second gateway order.
func (s *Reconciler) Initiate(ctx context.Context, principal domain.Principal, orderID string) (*Initiation, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if principal.Role != domain.RoleCustomer || !principal.CanAccess(order) {
		return nil, errors.NewForbiddenError("only the ordering customer can pay")
	}

	if order.Status != domain.StatusPending {
		return nil, errors.NewInvalidStateError(fmt.Sprintf("order %s is not awaiting payment", order.ID), string(order.Status))
	}

	existing, err := s.intentRepo.FindByOrderID(ctx, order.ID)
	if err == nil {
		s.logger.Info("reusing payment intent", zap.String("orderId", order.ID), zap.String("gatewayOrderId", existing.GatewayOrderID))
		return s.initiation(existing), nil
	}
	if _, ok := errors.IsNotFoundError(err); !ok {
		return nil, fmt.Errorf("loading payment intent: %w", err)
	}

	amountMinor, ok := domain.MinorUnits(order.TotalAmount)
	if !ok || amountMinor <= 0 {
		return nil, errors.NewValidationError("order total cannot be charged", errors.ValidationDetail{
			Field:   "total_amount",
			Message: "total must be positive with at most two decimal places",
		})
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, amountMinor, order.ID)
	if err != nil {
		s.logger.Warn("gateway order creation failed", zap.String("orderId", order.ID), zap.Error(err))
		return nil, err
	}

	intent := &domain.PaymentIntent{
		OrderID:        order.ID,
		GatewayOrderID: gwOrder.ID,
		AmountMinor:    amountMinor,
		Currency:       s.gateway.Currency(),
		CreatedAt:      s.now().UTC(),
	}
	if err := s.intentRepo.Create(ctx, intent); err != nil {
		if _, ok := errors.IsConflictError(err); ok {
			// A concurrent initiation persisted first; converge on its intent.
			winner, findErr := s.intentRepo.FindByOrderID(ctx, order.ID)
			if findErr != nil {
				return nil, fmt.Errorf("loading concurrent payment intent: %w", findErr)
			}
			s.logger.Info("payment intent created concurrently", zap.String("orderId", order.ID), zap.String("discardedGatewayOrderId", gwOrder.ID))
			return s.initiation(winner), nil
		}
		return nil, fmt.Errorf("persisting payment intent: %w", err)
	}

	s.logger.Info("payment initiated", zap.String("orderId", order.ID), zap.String("gatewayOrderId", intent.GatewayOrderID), zap.Int64("amountMinor", amountMinor))
	return s.initiation(intent), nil
}

// Verify authenticates a callback and marks the order paid. Repeated valid
// deliveries succeed without applying anything twice.
func (s *Reconciler) Verify(ctx context.Context, cb Callback) (*Verification, error) {
	logger := s.logger.With(zap.String("gatewayOrderId", cb.GatewayOrderID), zap.String("paymentId", cb.PaymentID))

	if details := cb.missingFields(); len(details) > 0 {
		return nil, errors.NewValidationError("incomplete payment callback", details...)
	}

	if !s.verifier.Verify(cb.GatewayOrderID, cb.PaymentID, cb.Signature) {
		logger.Error("payment signature mismatch")
		return nil, errors.NewSignatureMismatchError("payment signature does not match", cb.GatewayOrderID)
	}

	intent, err := s.intentRepo.FindByGatewayOrderID(ctx, cb.GatewayOrderID)
	if err != nil {
		if _, ok := errors.IsNotFoundError(err); ok {
			logger.Error("signed callback for unknown payment intent")
		}
		return nil, err
	}

	order, err := s.orderRepo.FindByID(ctx, intent.OrderID)
	if err != nil {
		return nil, err
	}

	if intent.Verified {
		logger.Info("payment already verified", zap.String("orderId", order.ID))
		return &Verification{OrderID: order.ID, Status: order.Status, AlreadyVerified: true}, nil
	}

	expected, ok := domain.MinorUnits(order.TotalAmount)
	if !ok || expected != intent.AmountMinor {
		logger.Error("payment amount mismatch",
			zap.String("orderId", order.ID),
			zap.Int64("intentAmountMinor", intent.AmountMinor),
			zap.String("orderTotal", order.TotalAmount.StringFixed(2)),
		)
		return nil, errors.NewSignatureMismatchError("payment amount does not match order total", cb.GatewayOrderID)
	}

	system := domain.SystemPrincipal()
	if err := domain.CheckTransition(order.Status, domain.StatusPaid, system.Role); err != nil {
		logger.Error("signed payment for order that cannot be paid", zap.String("orderId", order.ID), zap.String("status", string(order.Status)))
		return nil, err
	}

	already, err := s.confirmWithRetry(ctx, cb, logger)
	if err != nil {
		if ce, ok := errors.IsConflictError(err); ok {
			logger.Error("order left pending before payment was confirmed", zap.String("orderId", order.ID), zap.String("current", ce.Current))
			return nil, errors.NewInvalidTransitionError(ce.Current, string(domain.StatusPaid))
		}
		return nil, err
	}

	if already {
		logger.Info("payment verified concurrently", zap.String("orderId", order.ID))
		return &Verification{OrderID: order.ID, Status: domain.StatusPaid, AlreadyVerified: true}, nil
	}

	logger.Info("payment verified", zap.String("orderId", order.ID))
	s.publishPaid(ctx, order, system.Role)
	return &Verification{OrderID: order.ID, Status: domain.StatusPaid}, nil
}

func (s *Reconciler) confirmWithRetry(ctx context.Context, cb Callback, logger *zap.Logger) (bool, error) {
	backoffs := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetryAttempts; attempt++ {
		already, err := s.intentRepo.ConfirmPayment(ctx, cb.GatewayOrderID, cb.PaymentID, s.now())
		if err == nil || !mysql.IsDeadlock(err) {
			return already, err
		}
		lastErr = err

		if attempt < s.maxRetryAttempts {
			base := backoffs[min(attempt, len(backoffs)-1)]
			jitter := time.Duration(rand.Int63n(int64(base)/5 + 1))
			logger.Warn("deadlock confirming payment, retrying", zap.Int("attempt", attempt), zap.Int("maxAttempts", s.maxRetryAttempts))
			select {
			case <-time.After(base + jitter):
			case <-ctx.Done():
				return false, ctx.Err()
			}
		}
	}
	return false, fmt.Errorf("confirming payment after %d attempts: %w", s.maxRetryAttempts, lastErr)
}

func (s *Reconciler) publishPaid(ctx context.Context, order *domain.Order, actor domain.Role) {
	event := domain.StatusChanged{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		ShopID:     order.ShopID,
		From:       domain.StatusPending,
		To:         domain.StatusPaid,
		Actor:      actor,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.PublishStatusChanged(ctx, event); err != nil {
		s.logger.Warn("failed to publish status event", zap.String("orderId", order.ID), zap.Error(err))
	}
}

func (s *Reconciler) initiation(intent *domain.PaymentIntent) *Initiation {
	return &Initiation{
		OrderID:          intent.OrderID,
		GatewayOrderID:   intent.GatewayOrderID,
		AmountMinorUnits: intent.AmountMinor,
		Currency:         intent.Currency,
		PublicKey:        s.gateway.PublicKey(),
	}
}
