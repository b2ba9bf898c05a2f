// Package config содержит логику чтения конфигурации витрины.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/pricing"
)

// Config содержит параметры конфигурации витрины.
type Config struct {
	RunAddress        string `env:"RUN_ADDRESS"`
	DatabaseURI       string `env:"DATABASE_URI"`
	OrderStoreAddress string `env:"ORDER_STORE_ADDRESS"`
	FixturesDir       string `env:"FIXTURES_DIR"`

	RedisAddress  string        `env:"REDIS_ADDRESS"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	FixtureDelay  time.Duration `env:"FIXTURE_DELAY" envDefault:"0s"`
	SessionSecret string        `env:"SESSION_SECRET"`

	// CartTTL задаёт срок жизни cookie сессии и неактивной корзины.
	CartTTL           time.Duration `env:"CART_TTL" envDefault:"720h"`
	CartSweepInterval time.Duration `env:"CART_SWEEP_INTERVAL" envDefault:"10m"`

	// Значения по умолчанию берутся из pricing.DefaultPolicy.
	FreeShippingThreshold decimal.Decimal   `env:"FREE_SHIPPING_THRESHOLD"`
	FlatShippingCost      decimal.Decimal   `env:"FLAT_SHIPPING_COST"`
	TaxRate               decimal.Decimal   `env:"TAX_RATE"`
	Coupons               map[string]string `env:"COUPONS" envKeyValSeparator:":"`
}

func defaults() *Config {
	p := pricing.DefaultPolicy()

	coupons := make(map[string]string, len(p.Coupons))
	for code, rate := range p.Coupons {
		coupons[code] = rate.String()
	}

	return &Config{
		FreeShippingThreshold: p.FreeShippingThreshold,
		FlatShippingCost:      p.FlatShippingCost,
		TaxRate:               p.TaxRate,
		Coupons:               coupons,
	}
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := defaults()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envOrderStoreAddress := cfg.OrderStoreAddress
	envFixturesDir := cfg.FixturesDir

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.OrderStoreAddress, "r", "", "order store address")
	flag.StringVar(&cfg.FixturesDir, "f", "", "directory with cart.json and orders.json")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envOrderStoreAddress != "" {
		cfg.OrderStoreAddress = envOrderStoreAddress
	}
	if envFixturesDir != "" {
		cfg.FixturesDir = envFixturesDir
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	if cfg.TaxRate.IsNegative() || cfg.FlatShippingCost.IsNegative() || cfg.FreeShippingThreshold.IsNegative() {
		return nil, fmt.Errorf("pricing settings must not be negative")
	}
	if cfg.CartTTL <= 0 {
		return nil, fmt.Errorf("CART_TTL must be positive")
	}

	return cfg, nil
}

// Policy собирает тарифную политику из настроек.
func (c *Config) Policy() (pricing.Policy, error) {
	coupons, err := pricing.ParseCoupons(c.Coupons)
	if err != nil {
		return pricing.Policy{}, fmt.Errorf("parse coupons: %w", err)
	}

	return pricing.Policy{
		FreeShippingThreshold: c.FreeShippingThreshold,
		FlatShippingCost:      c.FlatShippingCost,
		TaxRate:               c.TaxRate,
		Coupons:               coupons,
	}, nil
}
