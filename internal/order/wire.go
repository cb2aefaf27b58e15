package order

import (
	"go.uber.org/zap"

	"zerox/internal/order/controller"
	"zerox/internal/order/service"
	"zerox/internal/order/usecase"
)

// Repository is the order store the module needs; both the MySQL and the
// in-memory stores satisfy it.
type Repository interface {
	usecase.OrderRepository
	service.OrderRepository
}

func NewModule(
	orderRepo Repository,
	rateCardRepo usecase.RateCardRepository,
	events service.EventPublisher,
	logger *zap.Logger,
) *controller.OrderController {
	statusSvc := service.NewStatusService(orderRepo, events, logger)
	useCase := usecase.NewOrderUseCase(orderRepo, rateCardRepo, statusSvc, logger)
	return controller.NewOrderController(useCase, logger)
}
