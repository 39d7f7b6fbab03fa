package model

import "time"

// Todo represents a single todo item.
type Todo struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	Title       string     `json:"title" gorm:"size:200;not null"`
	Description string     `json:"description,omitempty" gorm:"size:1000"`
	IsCompleted bool       `json:"is_completed" gorm:"default:false;index"`
	Priority    int        `json:"priority" gorm:"default:1"`
	Category    string     `json:"category,omitempty" gorm:"size:50"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
