// Package config содержит логику чтения конфигурации магазина DERA.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации магазина DERA.
type Config struct {
	RunAddress      string `env:"RUN_ADDRESS"`
	DatabaseURI     string `env:"DATABASE_URI"`
	RedisAddress    string `env:"REDIS_ADDRESS"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	AuthSecret      string `env:"AUTH_SECRET"`
	GatewaySecret   string `env:"PAYSTACK_SECRET_KEY"`
	GatewayAddress  string `env:"PAYSTACK_ADDRESS"`
	CallbackBaseURL string `env:"CALLBACK_BASE_URL"`
	CurrencyCode    string `env:"CURRENCY_CODE"`
	AssetHostURL    string `env:"ASSET_HOST_URL"`
	AssetHostKey    string `env:"ASSET_HOST_KEY"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Значения переменных окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.RedisAddress, "redis", "", "redis address, empty disables cache")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", "", "secret for signing auth tokens")
	flag.StringVar(&cfg.GatewaySecret, "gateway-secret", "", "payment gateway secret key")
	flag.StringVar(&cfg.GatewayAddress, "gateway", "https://api.paystack.co", "payment gateway address")
	flag.StringVar(&cfg.CallbackBaseURL, "callback", "http://localhost:8080", "base URL for payment callbacks")
	flag.StringVar(&cfg.CurrencyCode, "currency", "NGN", "store currency code")
	flag.StringVar(&cfg.AssetHostURL, "asset-host", "", "image hosting upload URL")
	flag.StringVar(&cfg.AssetHostKey, "asset-key", "", "image hosting API key")

	flag.Parse()

	applyEnvOverrides(cfg, &fromEnv)

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.AuthSecret == "" {
		return nil, fmt.Errorf("auth secret is required")
	}
	if cfg.GatewaySecret == "" {
		return nil, fmt.Errorf("gateway secret key is required")
	}

	return cfg, nil
}

func applyEnvOverrides(cfg, fromEnv *Config) {
	if fromEnv.RunAddress != "" {
		cfg.RunAddress = fromEnv.RunAddress
	}
	if fromEnv.DatabaseURI != "" {
		cfg.DatabaseURI = fromEnv.DatabaseURI
	}
	if fromEnv.RedisAddress != "" {
		cfg.RedisAddress = fromEnv.RedisAddress
	}
	if fromEnv.RedisPassword != "" {
		cfg.RedisPassword = fromEnv.RedisPassword
	}
	if fromEnv.AuthSecret != "" {
		cfg.AuthSecret = fromEnv.AuthSecret
	}
	if fromEnv.GatewaySecret != "" {
		cfg.GatewaySecret = fromEnv.GatewaySecret
	}
	if fromEnv.GatewayAddress != "" {
		cfg.GatewayAddress = fromEnv.GatewayAddress
	}
	if fromEnv.CallbackBaseURL != "" {
		cfg.CallbackBaseURL = fromEnv.CallbackBaseURL
	}
	if fromEnv.CurrencyCode != "" {
		cfg.CurrencyCode = fromEnv.CurrencyCode
	}
	if fromEnv.AssetHostURL != "" {
		cfg.AssetHostURL = fromEnv.AssetHostURL
	}
	if fromEnv.AssetHostKey != "" {
		cfg.AssetHostKey = fromEnv.AssetHostKey
	}
}
