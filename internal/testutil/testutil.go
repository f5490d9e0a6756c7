// Package testutil provides an in-memory store and fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"farm-backend/internal/access"
	"farm-backend/internal/config"
	"farm-backend/internal/database"
	"farm-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const JWTSecret = "test-secret-test-secret-test-secret-123"

// Config returns a valid configuration for an in-memory sqlite store.
func Config() *config.Config {
	return &config.Config{
		HTTPPort:       "0",
		DatabaseDriver: config.DriverSQLite,
		DatabaseDSN:    "file::memory:",
		JWTSecret:      JWTSecret,
		JWTTTL:         time.Hour,
		CORSOrigins:    "*",
		LogLevel:       "error",
		Invoice: config.InvoiceConfig{
			TaxRate:        decimal.RequireFromString("0.1"),
			InvoicePrefix:  "INV-",
			PurchasePrefix: "PO-",
		},
	}
}

// DB opens a fresh migrated in-memory database, closed when the test ends.
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(Config())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, nil))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// User inserts a user with the given role.
func User(t *testing.T, db *gorm.DB, role access.Role) *models.User {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	u := &models.User{
		Name:         fmt.Sprintf("%s user %d", role, n+1),
		Email:        fmt.Sprintf("user%d@farm.test", n+1),
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// Create inserts any model and fails the test on error.
func Create[T any](t *testing.T, db *gorm.DB, v *T) *T {
	t.Helper()
	require.NoError(t, db.Create(v).Error)
	return v
}

func Customer(t *testing.T, db *gorm.DB, ownerID uint) *models.Customer {
	t.Helper()
	return Create(t, db, &models.Customer{OwnerID: ownerID, Name: "Green Grocer", IsActive: true})
}

func Supplier(t *testing.T, db *gorm.DB, ownerID uint) *models.Supplier {
	t.Helper()
	return Create(t, db, &models.Supplier{OwnerID: ownerID, Name: "Feed Co", IsActive: true})
}

func Category(t *testing.T, db *gorm.DB, ownerID uint, typ models.CategoryType) *models.FinancialCategory {
	t.Helper()
	return Create(t, db, &models.FinancialCategory{OwnerID: ownerID, Name: string(typ) + " general", Type: typ})
}

func Dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func Date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}
