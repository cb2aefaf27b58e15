package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"zerox/internal/domain"
	"zerox/internal/errors"
	"zerox/internal/pricing"
)

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	ListByShop(ctx context.Context, shopID string) ([]domain.Order, error)
}

type RateCardRepository interface {
	FindByShopID(ctx context.Context, shopID string) (*domain.RateCard, error)
}

type StatusService interface {
	Transition(ctx context.Context, principal domain.Principal, orderID string, target domain.Status) (*domain.Order, error)
}

type OrderUseCase struct {
	orderRepo    OrderRepository
	rateCardRepo RateCardRepository
	statusSvc    StatusService
	logger       *zap.Logger
	now          func() time.Time
}

func NewOrderUseCase(
	orderRepo OrderRepository,
	rateCardRepo RateCardRepository,
	statusSvc StatusService,
	logger *zap.Logger,
) *OrderUseCase {
	return &OrderUseCase{
		orderRepo:    orderRepo,
		rateCardRepo: rateCardRepo,
		statusSvc:    statusSvc,
		logger:       logger,
		now:          time.Now,
	}
}

// Quote prices a manifest against the shop's current rate card without
// writing anything.
func (uc *OrderUseCase) Quote(ctx context.Context, principal domain.Principal, shopID string, specs []domain.FileSpec) (*pricing.Quote, error) {
	if principal.Role != domain.RoleCustomer {
		return nil, errors.NewForbiddenError("only customers can request quotes")
	}

	files, card, err := uc.prepare(ctx, principal, shopID, specs)
	if err != nil {
		return nil, err
	}
	return pricing.QuoteFiles(files, card)
}

// CreateOrder validates and prices the manifest, then persists the order in
// one step. Any validation or pricing failure leaves nothing behind.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, principal domain.Principal, shopID string, specs []domain.FileSpec) (*domain.Order, error) {
	if principal.Role != domain.RoleCustomer {
		return nil, errors.NewForbiddenError("only customers can place orders")
	}

	uc.logger.Info("create order started", zap.String("customerId", principal.UserID), zap.String("shopId", shopID), zap.Int("fileCount", len(specs)))

	files, card, err := uc.prepare(ctx, principal, shopID, specs)
	if err != nil {
		return nil, err
	}

	total, err := pricing.OrderTotal(files, card)
	if err != nil {
		if irc, ok := errors.IsIncompleteRateCardError(err); ok {
			uc.logger.Warn("order rejected, rate card incomplete", zap.String("shopId", shopID), zap.Strings("missing", irc.Missing))
		}
		return nil, err
	}

	order := domain.NewOrder(principal.UserID, shopID, files, total, uc.now().UTC())
	if err := uc.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persisting order: %w", err)
	}

	uc.logger.Info("order created", zap.String("orderId", order.ID), zap.String("total", order.TotalAmount.StringFixed(2)), zap.Int("totalPages", order.TotalPages()))
	return order, nil
}

func (uc *OrderUseCase) GetOrder(ctx context.Context, principal domain.Principal, orderID string) (*domain.Order, error) {
	order, err := uc.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(order) {
		return nil, errors.NewForbiddenError("order does not belong to caller")
	}
	return order, nil
}

func (uc *OrderUseCase) ListMyOrders(ctx context.Context, principal domain.Principal) ([]domain.Order, error) {
	if principal.Role != domain.RoleCustomer || principal.UserID == "" {
		return nil, errors.NewForbiddenError("only customers have personal orders")
	}
	return uc.orderRepo.ListByCustomer(ctx, principal.UserID)
}

func (uc *OrderUseCase) ListShopOrders(ctx context.Context, principal domain.Principal) ([]domain.Order, error) {
	if principal.Role != domain.RoleShop || principal.ShopID == "" {
		return nil, errors.NewForbiddenError("only shops have a fulfillment queue")
	}
	return uc.orderRepo.ListByShop(ctx, principal.ShopID)
}

// UpdateStatus parses the requested status and hands it to the state
// machine.
func (uc *OrderUseCase) UpdateStatus(ctx context.Context, principal domain.Principal, orderID string, requested string) (*domain.Order, error) {
	target, ok := domain.ParseStatus(requested)
	if !ok {
		return nil, errors.NewValidationError("invalid status", errors.ValidationDetail{
			Field:   "status",
			Message: "status must be one of pending, paid, printing, completed, cancelled",
		})
	}
	return uc.statusSvc.Transition(ctx, principal, orderID, target)
}

func (uc *OrderUseCase) prepare(ctx context.Context, principal domain.Principal, shopID string, specs []domain.FileSpec) ([]domain.OrderFile, *domain.RateCard, error) {
	if strings.TrimSpace(shopID) == "" {
		return nil, nil, errors.NewValidationError("validation failed", errors.ValidationDetail{
			Field:   "shop_id",
			Message: "shop_id is required",
		})
	}

	builder := domain.NewManifestBuilder()
	for _, spec := range specs {
		builder.Add(spec)
	}
	files, err := builder.Build()
	if err != nil {
		return nil, nil, err
	}

	// Download grants follow the orders that reference a key, so an order
	// may only reference the caller's own uploads.
	for i, f := range files {
		if !principal.OwnsUpload(f.StorageKey) {
			uc.logger.Warn("order references a foreign upload", zap.String("customerId", principal.UserID), zap.Int("fileIndex", i))
			return nil, nil, errors.NewForbiddenError(fmt.Sprintf("files[%d] was not uploaded by the caller", i))
		}
	}

	card, err := uc.rateCardRepo.FindByShopID(ctx, shopID)
	if err != nil {
		// A shop without any rates prices as an empty card and fails with
		// every pair missing.
		if _, ok := errors.IsNotFoundError(err); !ok {
			return nil, nil, fmt.Errorf("loading rate card: %w", err)
		}
		card, _ = domain.NewRateCard(shopID, nil)
	}
	return files, card, nil
}
