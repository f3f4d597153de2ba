package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Code is a single-use access token granting exactly one feedback submission
// for one (campaign, team leader) pair. The unused->used transition happens
// atomically with the feedback insert and is never reversed.
type Code struct {
	ID           string      `json:"id" gorm:"unique;not null"`
	Code         string      `json:"code" gorm:"type:varchar(16);not null;unique;index"`
	CampaignID   string      `json:"campaign_id" gorm:"not null;index"`
	Campaign     *Campaign   `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	TeamLeaderID string      `json:"team_leader_id" gorm:"not null;index"`
	TeamLeader   *TeamLeader `json:"-"`
	Used         bool        `gorm:"default:false" json:"used"`
	UsedAt       *time.Time  `json:"used_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

func (co *Code) BeforeCreate(tx *gorm.DB) (err error) {
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	co.ID = uuidV7.String()

	return
}
