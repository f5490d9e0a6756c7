package models

import "time"

type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"not null;index" json:"ownerId"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	Email     string    `gorm:"size:150" json:"email"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Address   string    `gorm:"size:255" json:"address"`
	TaxNumber string    `gorm:"size:50" json:"taxNumber"`
	IsActive  bool      `gorm:"not null;index" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Supplier struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OwnerID       uint      `gorm:"not null;index" json:"ownerId"`
	Name          string    `gorm:"size:150;not null" json:"name"`
	ContactPerson string    `gorm:"size:100" json:"contactPerson"`
	Email         string    `gorm:"size:150" json:"email"`
	Phone         string    `gorm:"size:50" json:"phone"`
	Address       string    `gorm:"size:255" json:"address"`
	IsActive      bool      `gorm:"not null;index" json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
