package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultDSN         = "host=localhost user=postgres password=postgres dbname=farm port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:5173"
	minJWTSecretLength = 32
	maxTaxRatePlaces   = 4
)

type Config struct {
	HTTPPort       string
	DatabaseDriver string
	DatabaseDSN    string
	JWTSecret      string
	JWTTTL         time.Duration
	CORSOrigins    string
	LogLevel       string
	MetricsEnabled bool

	Invoice InvoiceConfig
}

// InvoiceConfig holds the billing knobs shared by invoices and purchase orders.
type InvoiceConfig struct {
	TaxRate        decimal.Decimal
	InvoicePrefix  string
	PurchasePrefix string
}

// Load reads configuration from the environment, optionally seeded from envFile.
// A missing env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("JWT_TTL is invalid: %w", err)
	}

	taxRate, err := decimal.NewFromString(getEnv("INVOICE_TAX_RATE", "0"))
	if err != nil {
		return nil, fmt.Errorf("INVOICE_TAX_RATE is invalid: %w", err)
	}

	metrics, err := strconv.ParseBool(getEnv("METRICS_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("METRICS_ENABLED is invalid: %w", err)
	}

	cfg := &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres)),
		DatabaseDSN:    getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTTTL:         ttl,
		CORSOrigins:    getEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		MetricsEnabled: metrics,
		Invoice: InvoiceConfig{
			TaxRate:        taxRate,
			InvoicePrefix:  getEnv("INVOICE_PREFIX", "INV-"),
			PurchasePrefix: getEnv("PO_PREFIX", "PO-"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures required settings are present and sane.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT must be provided")
	}
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q", DriverPostgres, DriverSQLite)
	}
	if c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN must be provided")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be provided")
	}
	if len(c.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.Invoice.TaxRate.IsNegative() || c.Invoice.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("INVOICE_TAX_RATE must be between 0 and 1")
	}
	if !c.Invoice.TaxRate.Equal(c.Invoice.TaxRate.Truncate(maxTaxRatePlaces)) {
		return fmt.Errorf("INVOICE_TAX_RATE must have at most %d decimal places", maxTaxRatePlaces)
	}
	if c.Invoice.InvoicePrefix == c.Invoice.PurchasePrefix {
		return errors.New("INVOICE_PREFIX and PO_PREFIX must differ")
	}
	return nil
}

// Warnings lists settings that still use development defaults.
func (c *Config) Warnings() []string {
	var out []string
	if c.DatabaseDriver == DriverPostgres && c.DatabaseDSN == defaultDSN {
		out = append(out, "DATABASE_DSN uses the default value, set your own Postgres connection for production")
	}
	if c.CORSOrigins == defaultCORSOrigins {
		out = append(out, "CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production")
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
