package models

import (
	"time"
)

// Campaign is one run of the feedback survey. The ID is chosen by the admin
// (e.g. "2025-q3") and doubles as the primary key; there is deliberately no
// surrogate key next to it.
type Campaign struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Label     string    `gorm:"not null" json:"label"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
