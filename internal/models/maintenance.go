package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AssetStatus string

const (
	AssetActive      AssetStatus = "ACTIVE"
	AssetMaintenance AssetStatus = "MAINTENANCE"
	AssetRetired     AssetStatus = "RETIRED"
)

type Asset struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OwnerID      uint            `gorm:"not null;index" json:"ownerId"`
	Name         string          `gorm:"size:150;not null" json:"name"`
	AssetType    string          `gorm:"size:50;not null" json:"assetType"`
	SerialNumber string          `gorm:"size:100" json:"serialNumber"`
	PurchaseDate *time.Time      `json:"purchaseDate"`
	PurchaseCost decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"purchaseCost"`
	Location     string          `gorm:"size:100" json:"location"`
	Status       AssetStatus     `gorm:"size:20;not null;index" json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "SCHEDULED"
	MaintenanceInProgress MaintenanceStatus = "IN_PROGRESS"
	MaintenanceCompleted  MaintenanceStatus = "COMPLETED"
	MaintenanceCancelled  MaintenanceStatus = "CANCELLED"
)

type MaintenanceRecord struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	OwnerID       uint              `gorm:"not null;index" json:"ownerId"`
	AssetID       uint              `gorm:"not null;index" json:"assetId"`
	Title         string            `gorm:"size:150;not null" json:"title"`
	Description   string            `gorm:"type:text" json:"description"`
	ScheduledDate time.Time         `gorm:"not null;index" json:"scheduledDate"`
	CompletedDate *time.Time        `json:"completedDate"`
	Status        MaintenanceStatus `gorm:"size:20;not null;index" json:"status"`
	Cost          decimal.Decimal   `gorm:"type:numeric(14,2);not null" json:"cost"`
	PerformedBy   string            `gorm:"size:100" json:"performedBy"`
	// Recurrence is a standard five-field cron expression; empty means one-off.
	Recurrence string    `gorm:"size:100" json:"recurrence"`
	PreviousID *uint     `json:"previousId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (MaintenanceRecord) TableName() string { return "maintenance_records" }
