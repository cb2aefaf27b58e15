package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"zerox/internal/auth"
	"zerox/internal/commons"
	"zerox/internal/files"
	"zerox/internal/infrastructure/logger"
	"zerox/internal/order"
	"zerox/internal/payment"
	"zerox/internal/server"
)

func main() {
	cfg, err := commons.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("opening stores", zap.Error(err))
	}
	defer st.close()

	ledger, closeLedger := openLedger(cfg.Redis, zapLogger)
	defer closeLedger()

	events := openPublisher(cfg.Kafka, zapLogger)
	defer func() {
		if err := events.Close(); err != nil {
			zapLogger.Warn("closing event publisher", zap.Error(err))
		}
	}()

	ctrls := server.Controllers{
		Orders:   order.NewModule(st.orders, st.rateCards, events, zapLogger),
		Payments: payment.NewModule(cfg.Gateway, st.orders, st.intents, events, zapLogger),
		Files:    files.NewModule(cfg.Transfer, st.orders, ledger, zapLogger),
	}

	sessions := auth.NewSessionVerifier(cfg.Session.Secret, cfg.Session.Issuer, zapLogger)
	verifyLimiter := server.NewClientRateLimiter(cfg.Server.VerifyRateLimit, cfg.Server.VerifyRateBurst, zapLogger)
	router := server.NewRouter(ctrls, sessions, verifyLimiter, zapLogger)

	srv := server.New(cfg.Server.Port, router, zapLogger)
	if err := srv.Run(ctx); err != nil {
		zapLogger.Fatal("server error", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}
