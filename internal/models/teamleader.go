package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TeamLeader is a person feedback can be collected about. Leaders are never
// hard-deleted; deactivation keeps historical feedback attributable.
type TeamLeader struct {
	ID        string    `json:"id" gorm:"unique;not null"`
	Name      string    `gorm:"not null;unique" json:"name"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (tl *TeamLeader) BeforeCreate(tx *gorm.DB) (err error) {
	// Using uuid v7 to be indexable with B-tree
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	tl.ID = uuidV7.String()

	return
}
