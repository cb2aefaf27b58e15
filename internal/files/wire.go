package files

import (
	"go.uber.org/zap"

	"zerox/internal/config"
	"zerox/internal/files/controller"
	"zerox/internal/files/service"
)

func NewModule(
	cfg config.TransferConfig,
	orderRepo service.OrderRepository,
	ledger service.Ledger,
	logger *zap.Logger,
) *controller.FileController {
	broker := service.NewBroker(orderRepo, ledger, cfg.TokenSecret, cfg.WorkerURL, cfg.TokenTTL, logger)
	return controller.NewFileController(broker, cfg.WorkerKey, logger)
}
