package models

import (
	"time"

	"farm-backend/internal/access"
)

type User struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Name         string      `gorm:"size:100;not null" json:"name"`
	Email        string      `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string      `gorm:"size:255;not null" json:"-"`
	Role         access.Role `gorm:"size:20;not null;index" json:"role"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func (u *User) Principal() *access.Principal {
	return &access.Principal{ID: u.ID, Role: u.Role}
}

// Owned is implemented by every row that belongs to a user.
type Owned interface {
	Key() uint
	OwnedBy() uint
}
