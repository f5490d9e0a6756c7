package inventory

import (
	"errors"
	"fmt"

	"farm-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInsufficientStock = errors.New("quantity cannot go below zero")

type Adjustment struct {
	Delta           decimal.Decimal
	Reason          string
	PurchaseOrderID *uint
	UserID          uint
}

// Adjust applies a quantity change to item and records the movement.
// The row is locked for the rest of the transaction on databases that support it.
func Adjust(tx *gorm.DB, itemID uint, adj Adjustment) (*models.InventoryItem, error) {
	var item models.InventoryItem
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&item, itemID).Error; err != nil {
		return nil, fmt.Errorf("load inventory item %d: %w", itemID, err)
	}

	next := item.CurrentQuantity.Add(adj.Delta)
	if next.IsNegative() {
		return nil, fmt.Errorf("item %d has %s, delta %s: %w", item.ID, item.CurrentQuantity, adj.Delta, ErrInsufficientStock)
	}

	if err := tx.Model(&item).Update("current_quantity", next).Error; err != nil {
		return nil, fmt.Errorf("update inventory item %d: %w", item.ID, err)
	}
	item.CurrentQuantity = next

	movement := models.InventoryMovement{
		OwnerID:         item.OwnerID,
		InventoryItemID: item.ID,
		Delta:           adj.Delta,
		QuantityAfter:   next,
		Reason:          adj.Reason,
		PurchaseOrderID: adj.PurchaseOrderID,
		CreatedBy:       adj.UserID,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return nil, fmt.Errorf("record movement: %w", err)
	}
	return &item, nil
}
