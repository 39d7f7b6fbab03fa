package model

import "time"

// User represents a user record managed by the API.
type User struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Username    string    `json:"username" gorm:"uniqueIndex;size:50;not null"`
	Email       string    `json:"email" gorm:"uniqueIndex;size:100;not null"`
	FirstName   string    `json:"first_name" gorm:"size:50;not null"`
	LastName    string    `json:"last_name" gorm:"size:50;not null"`
	PhoneNumber string    `json:"phone_number,omitempty" gorm:"size:20"`
	Role        string    `json:"role" gorm:"size:20;default:'User';index"`
	IsActive    bool      `json:"is_active" gorm:"index"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time `json:"updated_at"`
}
