package payment

import (
	"go.uber.org/zap"

	"zerox/internal/config"
	"zerox/internal/payment/controller"
	"zerox/internal/payment/gateway"
	"zerox/internal/payment/service"
)

func NewModule(
	cfg config.GatewayConfig,
	orderRepo service.OrderRepository,
	intentRepo service.PaymentIntentRepository,
	events service.EventPublisher,
	logger *zap.Logger,
) *controller.PaymentController {
	reconciler := service.NewReconciler(
		orderRepo,
		intentRepo,
		gateway.NewClient(cfg),
		gateway.NewSignatureVerifier(cfg.KeySecret),
		events,
		logger,
	)
	return controller.NewPaymentController(reconciler, logger)
}
