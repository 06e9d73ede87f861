package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string
	Environment     string
	LogLevel        string
	BaseURL         string // public base URL for back URLs and confirmation links
	Storage         StorageConfig
	MercadoPago     MercadoPagoConfig
	SendGrid        SendGridConfig
	Newsletter      NewsletterConfig
	Checkout        CheckoutConfig
	Catalog         CatalogConfig
	API             APIConfig
	WebhookSecret   string // MERCADOPAGO_WEBHOOK_SECRET: verify incoming x-signature headers
}

// StorageConfig selects the blob-store backend. driver is one of
// memory, sqlite, redis, postgres.
type StorageConfig struct {
	Driver   string
	Path     string // sqlite file path
	RedisURL string
	Postgres PostgresConfig
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// MercadoPagoConfig is used to call the payment-session collaborator
type MercadoPagoConfig struct {
	BaseURL     string // override for tests; defaults to the public API
	AccessToken string
}

// SendGridConfig is used for templated email delivery
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	Brand     string
}

type NewsletterConfig struct {
	TokenTTLHours int
}

// CheckoutConfig carries the flat delivery surcharge applied when the
// shipping method is delivery
type CheckoutConfig struct {
	DeliverySurcharge string // decimal string, e.g. "500"
}

type CatalogConfig struct {
	Path string // JSON product catalog file
}

type APIConfig struct {
	AdminKeyHash string // bcrypt hash of the admin API key
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("STORAGE_DRIVER", "sqlite")
	viper.SetDefault("STORAGE_PATH", "storefront.db")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("NEWSLETTER_TOKEN_TTL_HOURS", 48)
	viper.SetDefault("DELIVERY_SURCHARGE", "500")
	viper.SetDefault("CATALOG_PATH", "products.json")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		BaseURL:     strings.TrimSpace(getEnvOrViper("APP_BASE_URL", "http://localhost:8080")),
		Storage: StorageConfig{
			Driver:   getEnvOrViper("STORAGE_DRIVER", "sqlite"),
			Path:     getEnvOrViper("STORAGE_PATH", "storefront.db"),
			RedisURL: strings.TrimSpace(getEnvOrViper("REDIS_URL", "")),
			Postgres: PostgresConfig{
				Host:     getEnvOrViper("DB_HOST", "localhost"),
				Port:     getEnvOrViper("DB_PORT", "5432"),
				User:     getEnvOrViper("DB_USER", "postgres"),
				Password: getEnvOrViper("DB_PASSWORD", "postgres"),
				DBName:   getEnvOrViper("DB_NAME", "storefront"),
				SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
			},
		},
		MercadoPago: MercadoPagoConfig{
			BaseURL:     strings.TrimSpace(getEnvOrViper("MERCADOPAGO_BASE_URL", "https://api.mercadopago.com")),
			AccessToken: strings.TrimSpace(getEnvOrViper("MERCADOPAGO_ACCESS_TOKEN", "")),
		},
		SendGrid: SendGridConfig{
			APIKey:    strings.TrimSpace(getEnvOrViper("SENDGRID_API_KEY", "")),
			FromEmail: getEnvOrViper("FROM_EMAIL", "no-reply@iharalondon.com"),
			Brand:     getEnvOrViper("BRAND", "Ihara & London"),
		},
		Newsletter: NewsletterConfig{
			TokenTTLHours: viper.GetInt("NEWSLETTER_TOKEN_TTL_HOURS"),
		},
		Checkout: CheckoutConfig{
			DeliverySurcharge: getEnvOrViper("DELIVERY_SURCHARGE", "500"),
		},
		Catalog: CatalogConfig{
			Path: getEnvOrViper("CATALOG_PATH", "products.json"),
		},
		API: APIConfig{
			AdminKeyHash: getEnvOrViper("ADMIN_API_KEY_HASH", ""),
		},
		WebhookSecret: strings.TrimSpace(getEnvOrViper("MERCADOPAGO_WEBHOOK_SECRET", "")),
	}

	// Validate storage selection
	switch cfg.Storage.Driver {
	case "memory", "sqlite", "postgres":
	case "redis":
		if cfg.Storage.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when STORAGE_DRIVER=redis")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}

	if cfg.Newsletter.TokenTTLHours <= 0 {
		cfg.Newsletter.TokenTTLHours = 48
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}
