package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type InventoryItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OwnerID         uint            `gorm:"not null;index" json:"ownerId"`
	Name            string          `gorm:"size:150;not null" json:"name"`
	SKU             string          `gorm:"size:50" json:"sku"`
	Category        string          `gorm:"size:50;index" json:"category"`
	Unit            string          `gorm:"size:20;not null" json:"unit"`
	CurrentQuantity decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"currentQuantity"`
	ReorderLevel    decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"reorderLevel"`
	UnitCost        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unitCost"`
	Location        string          `gorm:"size:100" json:"location"`
	SupplierID      *uint           `gorm:"index" json:"supplierId"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (i InventoryItem) LowStock() bool {
	return i.CurrentQuantity.LessThanOrEqual(i.ReorderLevel)
}

// InventoryMovement records every quantity change applied to an item.
type InventoryMovement struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OwnerID         uint            `gorm:"not null;index" json:"ownerId"`
	InventoryItemID uint            `gorm:"not null;index" json:"inventoryItemId"`
	Delta           decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"delta"`
	QuantityAfter   decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantityAfter"`
	Reason          string          `gorm:"size:255" json:"reason"`
	PurchaseOrderID *uint           `gorm:"index" json:"purchaseOrderId"`
	CreatedBy       uint            `json:"createdBy"`
	CreatedAt       time.Time       `json:"createdAt"`
}
