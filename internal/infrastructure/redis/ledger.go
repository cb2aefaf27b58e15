package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"zerox/internal/config"
)

const tokenKeyPrefix = "transfer-token:"

func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

// Ledger records consumed token ids in redis so single-use holds across
// replicas.
type Ledger struct {
	rdb *redis.Client
}

func NewLedger(rdb *redis.Client) *Ledger {
	return &Ledger{rdb: rdb}
}

// Consume reports true the first time an id is presented. The key expires
// with the token.
func (l *Ledger) Consume(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, tokenKeyPrefix+id, "used", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("recording token %s: %w", id, err)
	}
	return ok, nil
}
