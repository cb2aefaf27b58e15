package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"zerox/internal/domain"
	"zerox/internal/errors"
)

type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	CompareAndSwapStatus(ctx context.Context, id string, from, to domain.Status) error
}

type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event domain.StatusChanged) error
}

// StatusService applies state machine transitions with a compare-and-swap
// on the status the caller observed.
type StatusService struct {
	orderRepo OrderRepository
	events    EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewStatusService(orderRepo OrderRepository, events EventPublisher, logger *zap.Logger) *StatusService {
	return &StatusService{
		orderRepo: orderRepo,
		events:    events,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *StatusService) Transition(ctx context.Context, principal domain.Principal, orderID string, target domain.Status) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !principal.CanAccess(order) {
		return nil, errors.NewForbiddenError("order does not belong to caller")
	}

	if err := domain.CheckTransition(order.Status, target, principal.Role); err != nil {
		s.logger.Warn("transition rejected",
			zap.String("orderId", orderID),
			zap.String("current", string(order.Status)),
			zap.String("requested", string(target)),
			zap.String("role", string(principal.Role)),
			zap.Error(err),
		)
		return nil, err
	}

	from := order.Status
	if err := s.orderRepo.CompareAndSwapStatus(ctx, order.ID, from, target); err != nil {
		if ce, ok := errors.IsConflictError(err); ok {
			s.logger.Info("status transition lost race",
				zap.String("orderId", orderID),
				zap.String("expected", string(from)),
				zap.String("current", ce.Current),
			)
		}
		return nil, err
	}

	order.Status = target
	order.UpdatedAt = s.now().UTC()
	s.logger.Info("order status changed",
		zap.String("orderId", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("actor", string(principal.Role)),
	)

	s.Publish(ctx, order, from, principal.Role)
	return order, nil
}

// Publish emits a StatusChanged event for a committed move. Failures are
// logged and swallowed.
func (s *StatusService) Publish(ctx context.Context, order *domain.Order, from domain.Status, actor domain.Role) {
	event := domain.StatusChanged{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		ShopID:     order.ShopID,
		From:       from,
		To:         order.Status,
		Actor:      actor,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.PublishStatusChanged(ctx, event); err != nil {
		s.logger.Warn("failed to publish status event", zap.String("orderId", order.ID), zap.Error(err))
	}
}
