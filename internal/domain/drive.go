package domain

import "time"

type Driver struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:320;uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Passenger struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FirstName string    `gorm:"size:255;not null" json:"first_name"`
	LastName  string    `gorm:"size:255;not null" json:"last_name"`
	Email     string    `gorm:"size:320;index;not null" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Drive struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	DriverID      uint                `gorm:"index;not null" json:"driver_id"`
	StartLocation string              `gorm:"size:255" json:"start_location"`
	EndLocation   string              `gorm:"size:255" json:"end_location"`
	Description   string              `gorm:"size:1024" json:"description"`
	Date          time.Time           `gorm:"index" json:"date"`
	Tokens        []VerificationToken `gorm:"foreignKey:DriveID;constraint:OnDelete:CASCADE" json:"tokens,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}
