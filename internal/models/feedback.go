package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Feedback is one submitted questionnaire. Ratings map question ids to 1-5
// scores; Overall is their mean frozen at submission time and never
// recomputed, even if the question set changes later.
type Feedback struct {
	ID           string         `json:"id" gorm:"unique;not null"`
	CampaignID   string         `json:"campaign_id" gorm:"not null;index"`
	Campaign     *Campaign      `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	TeamLeaderID string         `json:"team_leader_id" gorm:"not null;index"`
	Ratings      map[string]int `json:"ratings" gorm:"serializer:json;not null"`
	Overall      float64        `json:"overall" gorm:"not null"`
	Strengths    string         `json:"strengths,omitempty"`
	Development  string         `json:"development,omitempty"`
	Other        string         `json:"other,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) (err error) {
	uuidV7, err := uuid.NewV7()
	if err != nil {
		return err
	}
	f.ID = uuidV7.String()

	return
}
