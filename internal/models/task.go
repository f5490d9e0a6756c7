package models

import "time"

type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskCancelled  TaskStatus = "CANCELLED"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
	PriorityUrgent TaskPriority = "URGENT"
)

type Task struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	OwnerID     uint         `gorm:"not null;index" json:"ownerId"`
	Title       string       `gorm:"size:150;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	DueDate     *time.Time   `gorm:"index" json:"dueDate"`
	Priority    TaskPriority `gorm:"size:20;not null;index" json:"priority"`
	Status      TaskStatus   `gorm:"size:20;not null;index" json:"status"`
	AnimalID    *uint        `json:"animalId"`
	AssetID     *uint        `json:"assetId"`
	CompletedAt *time.Time   `json:"completedAt"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
