package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.True(t, cfg.MetricsEnabled)
	assert.True(t, cfg.Invoice.TaxRate.IsZero())
	assert.Equal(t, "INV-", cfg.Invoice.InvoicePrefix)
	assert.Equal(t, "PO-", cfg.Invoice.PurchasePrefix)
	assert.Len(t, cfg.Warnings(), 2)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("DATABASE_DSN", "file::memory:")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("INVOICE_TAX_RATE", "0.075")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://farm.example")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, 90*time.Minute, cfg.JWTTTL)
	assert.Equal(t, "0.075", cfg.Invoice.TaxRate.String())
	assert.False(t, cfg.MetricsEnabled)
	assert.Empty(t, cfg.Warnings())
}

func TestLoad_EnvFile(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)
	require.NoError(t, os.Unsetenv("PO_PREFIX"))
	t.Cleanup(func() { _ = os.Unsetenv("PO_PREFIX") })

	path := filepath.Join(t.TempDir(), "farm.env")
	require.NoError(t, os.WriteFile(path, []byte("PO_PREFIX=ORD-\n"), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "ORD-", cfg.Invoice.PurchasePrefix)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))

	assert.NoError(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]struct {
		key, value string
		want       string
	}{
		"ttl":     {"JWT_TTL", "tomorrow", "JWT_TTL"},
		"tax":     {"INVOICE_TAX_RATE", "ten", "INVOICE_TAX_RATE"},
		"metrics": {"METRICS_ENABLED", "maybe", "METRICS_ENABLED"},
		"driver":  {"DATABASE_DRIVER", "mysql", "DATABASE_DRIVER"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", secret)
			t.Setenv(tc.key, tc.value)

			_, err := Load("")

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			HTTPPort:       "8080",
			DatabaseDriver: DriverSQLite,
			DatabaseDSN:    "file::memory:",
			JWTSecret:      secret,
			JWTTTL:         time.Hour,
			Invoice:        InvoiceConfig{InvoicePrefix: "INV-", PurchasePrefix: "PO-"},
		}
	}

	require.NoError(t, valid().Validate())

	short := valid()
	short.JWTSecret = "short"
	assert.ErrorContains(t, short.Validate(), "at least 32")

	missing := valid()
	missing.JWTSecret = ""
	assert.ErrorContains(t, missing.Validate(), "JWT_SECRET must be provided")

	samePrefix := valid()
	samePrefix.Invoice.PurchasePrefix = "INV-"
	assert.ErrorContains(t, samePrefix.Validate(), "must differ")

	negative := valid()
	negative.Invoice.TaxRate = decimal.NewFromInt(-1)
	assert.ErrorContains(t, negative.Validate(), "between 0 and 1")

	fine := valid()
	fine.Invoice.TaxRate = decimal.RequireFromString("0.07125")
	assert.ErrorContains(t, fine.Validate(), "at most 4 decimal places")
	fine.Invoice.TaxRate = decimal.RequireFromString("0.0725")
	assert.NoError(t, fine.Validate())

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}
