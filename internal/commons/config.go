package commons

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"zerox/internal/config"
)

// LoadConfig reads environment defaults and, when path is non-empty, overlays
// the YAML file on top of them.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading environment config: %w", err)
	}

	if path == "" {
		return cfg, Validate(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, Validate(cfg)
}

func Validate(cfg *config.Config) error {
	var errs []error

	if cfg.Storage.Driver != "mysql" && cfg.Storage.Driver != "memory" {
		errs = append(errs, fmt.Errorf("storage driver %q is not one of mysql, memory", cfg.Storage.Driver))
	}
	if cfg.Gateway.KeySecret == "" {
		errs = append(errs, errors.New("gateway key secret is required"))
	}
	if cfg.Transfer.TokenSecret == "" {
		errs = append(errs, errors.New("transfer token secret is required"))
	}
	if cfg.Transfer.TokenTTL <= 0 || cfg.Transfer.TokenTTL > 15*time.Minute {
		errs = append(errs, fmt.Errorf("transfer token ttl %s must be within (0, 15m]", cfg.Transfer.TokenTTL))
	}
	if cfg.Session.Secret == "" {
		errs = append(errs, errors.New("session secret is required"))
	}

	return errors.Join(errs...)
}
