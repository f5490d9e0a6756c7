package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionIncome   TransactionType = "INCOME"
	TransactionExpense  TransactionType = "EXPENSE"
	TransactionTransfer TransactionType = "TRANSFER"
)

// CategoryType decides whether a category counts as income or expense in profit/loss.
type CategoryType string

const (
	CategoryIncome  CategoryType = "INCOME"
	CategoryExpense CategoryType = "EXPENSE"
)

type FinancialCategory struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	OwnerID     uint         `gorm:"not null;index" json:"ownerId"`
	Name        string       `gorm:"size:100;not null" json:"name"`
	Type        CategoryType `gorm:"size:20;not null" json:"type"`
	Description string       `gorm:"size:255" json:"description"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type FinancialRecord struct {
	ID              uint               `gorm:"primaryKey" json:"id"`
	OwnerID         uint               `gorm:"not null;index" json:"ownerId"`
	TransactionType TransactionType    `gorm:"size:20;not null;index" json:"transactionType"`
	CategoryID      uint               `gorm:"not null;index" json:"categoryId"`
	Category        *FinancialCategory `json:"category,omitempty"`
	Quantity        decimal.Decimal    `gorm:"type:numeric(14,3);not null" json:"quantity"`
	UnitPrice       decimal.Decimal    `gorm:"type:numeric(14,2);not null" json:"unitPrice"`
	Amount          decimal.Decimal    `gorm:"type:numeric(20,5);not null" json:"amount"`
	AnimalID        *uint              `gorm:"index" json:"animalId"`
	BatchID         *uint              `gorm:"index" json:"batchId"`
	CustomerID      *uint              `gorm:"index" json:"customerId"`
	SupplierID      *uint              `gorm:"index" json:"supplierId"`
	TransactionDate time.Time          `gorm:"not null;index" json:"transactionDate"`
	Description     string             `gorm:"size:255" json:"description"`
	Reference       string             `gorm:"size:100" json:"reference"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}
