package models

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionState  AuditAction = "transition"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	// owner of the affected row, so non-admins see the history of their own data
	OwnerID uint `gorm:"not null;index" json:"ownerId"`
	UserID  uint `gorm:"not null;index" json:"userId"`

	EntityType string `gorm:"size:50;index" json:"entityType"`
	EntityID   uint   `gorm:"index" json:"entityId"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	// JSON snapshots, "null" when absent
	BeforeData string `gorm:"type:text" json:"beforeData"`
	AfterData  string `gorm:"type:text" json:"afterData"`
}

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&User{},
		&Customer{},
		&Supplier{},
		&FinancialCategory{},
		&AnimalBatch{},
		&Animal{},
		&FinancialRecord{},
		&Sequence{},
		&Invoice{},
		&InvoiceLineItem{},
		&InventoryItem{},
		&InventoryMovement{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&Asset{},
		&MaintenanceRecord{},
		&Task{},
		&AuditLog{},
	}
}
