package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Metric bounds for a daily check-in.
const (
	MaxMood         = 10
	MaxStress       = 10
	MaxSleepHours   = 12
	MaxProductivity = 10
)

// CheckIn is one admitted daily self-report. Rows are append-only.
type CheckIn struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	UserID       string    `gorm:"size:36;not null;index:idx_checkins_user_created,priority:1" json:"user_id"`
	Mood         int       `gorm:"not null" json:"mood"`
	Stress       int       `gorm:"not null" json:"stress"`
	Sleep        int       `gorm:"not null" json:"sleep"`
	Productivity int       `gorm:"not null" json:"productivity"`
	Notes        *string   `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time `gorm:"not null;index:idx_checkins_user_created,priority:2" json:"created_at"`
}

// BeforeCreate assigns the record id.
func (c *CheckIn) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
