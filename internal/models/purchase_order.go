package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseOrderStatus string

const (
	PurchaseDraft     PurchaseOrderStatus = "DRAFT"
	PurchaseSent      PurchaseOrderStatus = "SENT"
	PurchasePartial   PurchaseOrderStatus = "PARTIAL"
	PurchaseReceived  PurchaseOrderStatus = "RECEIVED"
	PurchaseCancelled PurchaseOrderStatus = "CANCELLED"
)

type PurchaseOrder struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	OwnerID      uint                `gorm:"not null;uniqueIndex:idx_purchase_orders_owner_number,priority:1" json:"ownerId"`
	OrderNumber  string              `gorm:"size:50;not null;uniqueIndex:idx_purchase_orders_owner_number,priority:2" json:"orderNumber"`
	SupplierID   uint                `gorm:"not null;index" json:"supplierId"`
	Supplier     *Supplier           `json:"supplier,omitempty"`
	OrderDate    time.Time           `gorm:"not null" json:"orderDate"`
	ExpectedDate *time.Time          `json:"expectedDate"`
	Subtotal     decimal.Decimal     `gorm:"type:numeric(20,5);not null" json:"subtotal"`
	TaxAmount    decimal.Decimal     `gorm:"type:numeric(24,9);not null" json:"taxAmount"`
	TotalAmount  decimal.Decimal     `gorm:"type:numeric(24,9);not null" json:"totalAmount"`
	Status       PurchaseOrderStatus `gorm:"size:20;not null;index" json:"status"`
	Notes        string              `gorm:"type:text" json:"notes"`
	ReceivedAt   *time.Time          `json:"receivedAt"`
	Items        []PurchaseOrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

type PurchaseOrderItem struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	PurchaseOrderID  uint            `gorm:"not null;index" json:"purchaseOrderId"`
	InventoryItemID  *uint           `gorm:"index" json:"inventoryItemId"`
	Description      string          `gorm:"size:255;not null" json:"description"`
	Quantity         decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantity"`
	ReceivedQuantity decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"receivedQuantity"`
	UnitPrice        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unitPrice"`
	TotalPrice       decimal.Decimal `gorm:"type:numeric(20,5);not null" json:"totalPrice"`
}

// Outstanding is how much of the line is still expected.
func (i PurchaseOrderItem) Outstanding() decimal.Decimal {
	return i.Quantity.Sub(i.ReceivedQuantity)
}
