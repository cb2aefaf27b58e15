package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"zerox/internal/config"
	filesservice "zerox/internal/files/service"
	"zerox/internal/infrastructure/kafka"
	"zerox/internal/infrastructure/memory"
	"zerox/internal/infrastructure/mysql"
	"zerox/internal/infrastructure/redis"
	"zerox/internal/order"
	orderrepo "zerox/internal/order/repository"
	"zerox/internal/order/usecase"
	paymentrepo "zerox/internal/payment/repository"
	paymentservice "zerox/internal/payment/service"
)

type orderStore interface {
	order.Repository
	filesservice.OrderRepository
}

type stores struct {
	orders    orderStore
	rateCards usecase.RateCardRepository
	intents   paymentservice.PaymentIntentRepository
	close     func()
}

type eventPublisher interface {
	paymentservice.EventPublisher
	Close() error
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.Storage.Driver == "memory" {
		logger.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &stores{
			orders:    store.Orders(),
			rateCards: store.RateCards(),
			intents:   store.PaymentIntents(),
			close:     func() {},
		}, nil
	}

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := mysql.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	logger.Info("database connected", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.Name))

	return &stores{
		orders:    orderrepo.NewMySQLOrderRepository(db),
		rateCards: orderrepo.NewMySQLRateCardRepository(db),
		intents:   paymentrepo.NewMySQLPaymentIntentRepository(db),
		close:     func() { db.Close() },
	}, nil
}

// openLedger prefers Redis so token redemption is single use across replicas.
func openLedger(cfg config.RedisConfig, logger *zap.Logger) (filesservice.Ledger, func()) {
	if cfg.Addr == "" {
		logger.Warn("redis not configured; token ledger is process local")
		return memory.NewLedger(), func() {}
	}

	rdb, err := redis.NewClient(cfg)
	if err != nil {
		logger.Fatal("connecting to redis", zap.String("addr", cfg.Addr), zap.Error(err))
	}
	logger.Info("redis connected", zap.String("addr", cfg.Addr))
	return redis.NewLedger(rdb), func() { rdb.Close() }
}

func openPublisher(cfg config.KafkaConfig, logger *zap.Logger) eventPublisher {
	if len(cfg.Brokers) == 0 {
		logger.Info("kafka not configured; status events are dropped")
		return kafka.NopPublisher{}
	}

	logger.Info("publishing status events", zap.Strings("brokers", cfg.Brokers), zap.String("topic", cfg.Topic))
	return kafka.NewPublisher(kafka.NewWriter(cfg))
}
