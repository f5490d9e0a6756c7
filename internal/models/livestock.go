package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type HealthStatus string

const (
	HealthHealthy    HealthStatus = "HEALTHY"
	HealthSick       HealthStatus = "SICK"
	HealthInjured    HealthStatus = "INJURED"
	HealthQuarantine HealthStatus = "QUARANTINE"
	HealthRecovering HealthStatus = "RECOVERING"
)

type AnimalStatus string

const (
	AnimalActive   AnimalStatus = "ACTIVE"
	AnimalSold     AnimalStatus = "SOLD"
	AnimalDeceased AnimalStatus = "DECEASED"
)

type Animal struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	OwnerID       uint                `gorm:"not null;index" json:"ownerId"`
	TagNumber     string              `gorm:"size:50;not null" json:"tagNumber"`
	Name          string              `gorm:"size:100" json:"name"`
	Species       string              `gorm:"size:50;not null;index" json:"species"`
	Breed         string              `gorm:"size:100" json:"breed"`
	Gender        string              `gorm:"size:10" json:"gender"`
	BirthDate     *time.Time          `json:"birthDate"`
	BatchID       *uint               `gorm:"index" json:"batchId"`
	CurrentWeight decimal.NullDecimal `gorm:"type:numeric(12,3)" json:"currentWeight"`
	HealthStatus  HealthStatus        `gorm:"size:20;not null;index" json:"healthStatus"`
	Status        AnimalStatus        `gorm:"size:20;not null;index" json:"status"`
	Notes         string              `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

type BatchStatus string

const (
	BatchActive    BatchStatus = "ACTIVE"
	BatchCompleted BatchStatus = "COMPLETED"
	BatchSold      BatchStatus = "SOLD"
	BatchCancelled BatchStatus = "CANCELLED"
)

type AnimalBatch struct {
	ID              uint                `gorm:"primaryKey" json:"id"`
	OwnerID         uint                `gorm:"not null;index" json:"ownerId"`
	BatchNumber     string              `gorm:"size:50;not null" json:"batchNumber"`
	Species         string              `gorm:"size:50;not null" json:"species"`
	InitialQuantity int                 `gorm:"not null" json:"initialQuantity"`
	CurrentQuantity int                 `gorm:"not null" json:"currentQuantity"`
	StartDate       time.Time           `json:"startDate"`
	TotalCost       decimal.Decimal     `gorm:"type:numeric(14,2);not null" json:"totalCost"`
	AverageWeight   decimal.NullDecimal `gorm:"type:numeric(12,3)" json:"averageWeight"`
	BatchStatus     BatchStatus         `gorm:"size:20;not null;index" json:"batchStatus"`
	Notes           string              `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func (AnimalBatch) TableName() string { return "animal_batches" }
