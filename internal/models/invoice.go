package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceDraft     InvoiceStatus = "DRAFT"
	InvoiceSent      InvoiceStatus = "SENT"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceOverdue   InvoiceStatus = "OVERDUE"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

type Invoice struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	OwnerID       uint              `gorm:"not null;uniqueIndex:idx_invoices_owner_number,priority:1" json:"ownerId"`
	InvoiceNumber string            `gorm:"size:50;not null;uniqueIndex:idx_invoices_owner_number,priority:2" json:"invoiceNumber"`
	CustomerID    uint              `gorm:"not null;index" json:"customerId"`
	Customer      *Customer         `json:"customer,omitempty"`
	InvoiceDate   time.Time         `gorm:"not null" json:"invoiceDate"`
	DueDate       time.Time         `gorm:"not null;index" json:"dueDate"`
	Subtotal      decimal.Decimal   `gorm:"type:numeric(20,5);not null" json:"subtotal"`
	TaxRate       decimal.Decimal   `gorm:"type:numeric(8,4);not null" json:"taxRate"`
	TaxAmount     decimal.Decimal   `gorm:"type:numeric(24,9);not null" json:"taxAmount"`
	TotalAmount   decimal.Decimal   `gorm:"type:numeric(24,9);not null" json:"totalAmount"`
	Status        InvoiceStatus     `gorm:"size:20;not null;index" json:"status"`
	Notes         string            `gorm:"type:text" json:"notes"`
	SentAt        *time.Time        `json:"sentAt"`
	PaidAt        *time.Time        `json:"paidAt"`
	LineItems     []InvoiceLineItem `gorm:"constraint:OnDelete:CASCADE" json:"lineItems"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

type InvoiceLineItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	InvoiceID   uint            `gorm:"not null;index" json:"invoiceId"`
	Description string          `gorm:"size:255;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unitPrice"`
	TotalPrice  decimal.Decimal `gorm:"type:numeric(20,5);not null" json:"totalPrice"`
}

// Sequence is the last number handed out for one owner and document kind.
type Sequence struct {
	OwnerID   uint   `gorm:"primaryKey;autoIncrement:false"`
	Kind      string `gorm:"primaryKey;size:20"`
	LastValue int64  `gorm:"not null"`
}

func (Sequence) TableName() string { return "document_sequences" }
