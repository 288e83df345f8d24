// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// minSessionSecretBytes はSESSION_SECRETの最小長。相関トークンのHMAC鍵に使う。
const minSessionSecretBytes = 32

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// OAuth
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID,required,notEmpty"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET,required,notEmpty"`
	GoogleRedirectURL  string        `env:"GOOGLE_REDIRECT_URL,required,notEmpty"`
	ProviderTimeout    time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`

	// Session
	SessionSecret        string        `env:"SESSION_SECRET,required,notEmpty"`
	SessionIdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"1h"`
	SessionLifetime      time.Duration `env:"SESSION_LIFETIME" envDefault:"24h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1h"`

	// Password hashing
	BcryptCost int `env:"BCRYPT_COST" envDefault:"10"`

	// Catalog
	CatalogURL        string        `env:"CATALOG_URL" envDefault:"http://localhost:3001"`
	CatalogTimeout    time.Duration `env:"CATALOG_TIMEOUT" envDefault:"5s"`
	CatalogSampleSize int           `env:"CATALOG_SAMPLE_SIZE" envDefault:"3"`

	// Rate Limit（req/min/IP）
	RateLimitAuth       int `env:"RATE_LIMIT_AUTH" envDefault:"30"`
	RateLimitCredential int `env:"RATE_LIMIT_CREDENTIAL" envDefault:"10"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	BaseURL    string `env:"BASE_URL,required,notEmpty"`

	// Cookie
	CookieSecure bool
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数の未設定や値の不正はまとめて1つのエラーとして返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if len(c.SessionSecret) < minSessionSecretBytes {
		errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", minSessionSecretBytes))
	}
	if c.RateLimitAuth <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_AUTH must be positive: %d", c.RateLimitAuth))
	}
	if c.RateLimitCredential <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_CREDENTIAL must be positive: %d", c.RateLimitCredential))
	}
	if c.SessionIdleTimeout <= 0 || c.SessionLifetime <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_IDLE_TIMEOUT and SESSION_LIFETIME must be positive"))
	}
	if c.ProviderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("PROVIDER_TIMEOUT must be positive: %s", c.ProviderTimeout))
	}
	if c.CatalogTimeout <= 0 {
		errs = append(errs, fmt.Errorf("CATALOG_TIMEOUT must be positive: %s", c.CatalogTimeout))
	}
	if c.CatalogSampleSize < 0 {
		errs = append(errs, fmt.Errorf("CATALOG_SAMPLE_SIZE must not be negative: %d", c.CatalogSampleSize))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
