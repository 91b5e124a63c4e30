package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the per-identity profile document: credentials, onboarding answers and the cached streak.
// Streaks and LastCheckIn are only written by the check-in service.
// Email, Provider and ProviderID are unique together: one local account per email,
// one row per external identity.
type User struct {
	ID                 string     `gorm:"primaryKey;size:36" json:"id"`
	Email              string     `gorm:"size:255;uniqueIndex:idx_users_identity,priority:1" json:"email"`
	PasswordHash       string     `gorm:"size:255" json:"-"`
	Provider           string     `gorm:"size:32;uniqueIndex:idx_users_identity,priority:2" json:"provider"`
	ProviderID         string     `gorm:"size:255;index;uniqueIndex:idx_users_identity,priority:3" json:"provider_id"`
	Name               string     `gorm:"size:128" json:"name"`
	Age                *int       `json:"age"`
	Gender             string     `gorm:"size:32" json:"gender"`
	Occupation         string     `gorm:"size:128" json:"occupation"`
	Workspace          string     `gorm:"size:64" json:"workspace"`
	SleepHabits        string     `gorm:"size:64" json:"sleep_habits"`
	PhysicalActivities string     `gorm:"size:64" json:"physical_activities"`
	ScreenTime         *string    `gorm:"size:64" json:"screen_time"`
	HasMentalIssue     *bool      `json:"has_mental_issue"`
	MentalIssueDetails *string    `gorm:"type:text" json:"mental_issue_details"`
	Streaks            int        `gorm:"not null;default:0" json:"streaks"`
	LastCheckIn        *time.Time `gorm:"index" json:"last_check_in"`
	OnboardingDone     bool       `gorm:"column:onboarding_completed;not null;default:false" json:"onboarding_completed"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// OnboardingColumns is the write allow-list for onboarding merges; it never includes streak state.
var OnboardingColumns = []string{
	"name", "age", "gender", "occupation", "workspace", "sleep_habits",
	"physical_activities", "screen_time", "has_mental_issue", "mental_issue_details",
	"onboarding_completed", "updated_at",
}

// BeforeCreate assigns the identity key and timestamps.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now().UTC()
	return nil
}
