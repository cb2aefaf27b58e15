package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Transfer TransferConfig `yaml:"transfer"`
	Session  SessionConfig  `yaml:"session"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// VerifyRateLimit bounds callback deliveries per client per second.
	VerifyRateLimit float64 `yaml:"verifyRateLimit"`
	VerifyRateBurst int     `yaml:"verifyRateBurst"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// StorageConfig selects the order store: "mysql" or "memory".
type StorageConfig struct {
	Driver string `yaml:"driver"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type GatewayConfig struct {
	BaseURL   string        `yaml:"baseUrl"`
	KeyID     string        `yaml:"keyId"`
	KeySecret string        `yaml:"keySecret"`
	Currency  string        `yaml:"currency"`
	Timeout   time.Duration `yaml:"timeout"`
}

type TransferConfig struct {
	WorkerURL   string        `yaml:"workerUrl"`
	TokenSecret string        `yaml:"tokenSecret"`
	TokenTTL    time.Duration `yaml:"tokenTtl"`
	// WorkerKey authenticates the storage worker when it redeems tokens.
	WorkerKey string `yaml:"workerKey"`
}

type SessionConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("SERVER_VERIFY_RATE_LIMIT", 5)
	viper.SetDefault("SERVER_VERIFY_RATE_BURST", 10)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 3306)
	viper.SetDefault("DB_USER", "zerox")
	viper.SetDefault("DB_PASSWORD", "secret")
	viper.SetDefault("DB_NAME", "zerox")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("STORAGE_DRIVER", "mysql")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TOPIC", "order-events")
	viper.SetDefault("GATEWAY_BASE_URL", "https://api.razorpay.com")
	viper.SetDefault("GATEWAY_CURRENCY", "INR")
	viper.SetDefault("GATEWAY_TIMEOUT", "10s")
	viper.SetDefault("TRANSFER_WORKER_URL", "http://localhost:8787")
	viper.SetDefault("TRANSFER_TOKEN_TTL", "2m")
	viper.SetDefault("SESSION_ISSUER", "zerox-identity")

	connMaxLifetime, err := time.ParseDuration(viper.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, err
	}

	gatewayTimeout, err := time.ParseDuration(viper.GetString("GATEWAY_TIMEOUT"))
	if err != nil {
		return nil, err
	}

	tokenTTL, err := time.ParseDuration(viper.GetString("TRANSFER_TOKEN_TTL"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            viper.GetInt("SERVER_PORT"),
			VerifyRateLimit: viper.GetFloat64("SERVER_VERIFY_RATE_LIMIT"),
			VerifyRateBurst: viper.GetInt("SERVER_VERIFY_RATE_BURST"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Storage: StorageConfig{
			Driver: viper.GetString("STORAGE_DRIVER"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(viper.GetString("KAFKA_BROKERS")),
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		Gateway: GatewayConfig{
			BaseURL:   viper.GetString("GATEWAY_BASE_URL"),
			KeyID:     viper.GetString("GATEWAY_KEY_ID"),
			KeySecret: viper.GetString("GATEWAY_KEY_SECRET"),
			Currency:  viper.GetString("GATEWAY_CURRENCY"),
			Timeout:   gatewayTimeout,
		},
		Transfer: TransferConfig{
			WorkerURL:   viper.GetString("TRANSFER_WORKER_URL"),
			TokenSecret: viper.GetString("TRANSFER_TOKEN_SECRET"),
			TokenTTL:    tokenTTL,
			WorkerKey:   viper.GetString("TRANSFER_WORKER_KEY"),
		},
		Session: SessionConfig{
			Secret: viper.GetString("SESSION_SECRET"),
			Issuer: viper.GetString("SESSION_ISSUER"),
		},
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
