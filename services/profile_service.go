package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/neurowell/neurowell/models"
	"github.com/neurowell/neurowell/utils"
)

// OnboardingInput carries the questionnaire answers. Nil pointers leave a field untouched.
type OnboardingInput struct {
	Name               *string
	Age                *int
	Gender             *string
	Occupation         *string
	Workspace          *string
	SleepHabits        *string
	PhysicalActivities *string
	ScreenTime         *string
	HasMentalIssue     *bool
	MentalIssueDetails *string
}

// ProfileService reads profiles and merges onboarding answers.
type ProfileService struct {
	db  *gorm.DB
	now Clock
}

// NewProfileService creates the service. A nil clock uses the wall clock.
func NewProfileService(db *gorm.DB, clock Clock) *ProfileService {
	if clock == nil {
		clock = time.Now
	}
	return &ProfileService{db: db, now: clock}
}

// Get loads a profile by identity key.
func (s *ProfileService) Get(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("load profile: %w", err)
	}
	return user, nil
}

// Onboard merges the answers into the profile and marks onboarding complete.
// Only allow-listed columns are written, so the streak fields are never touched.
func (s *ProfileService) Onboard(ctx context.Context, userID string, in OnboardingInput) (models.User, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return models.User{}, err
	}
	updates := map[string]interface{}{
		"onboarding_completed": true,
		"updated_at":           s.now().UTC(),
	}
	setString := func(col string, v *string, max int) {
		if v != nil {
			updates[col] = utils.SanitizeString(*v, max)
		}
	}
	setString("name", in.Name, 128)
	setString("gender", in.Gender, 32)
	setString("occupation", in.Occupation, 128)
	setString("workspace", in.Workspace, 64)
	setString("sleep_habits", in.SleepHabits, 64)
	setString("physical_activities", in.PhysicalActivities, 64)
	if in.ScreenTime != nil {
		updates["screen_time"] = utils.SanitizeText(*in.ScreenTime, 64)
	}
	if in.Age != nil {
		updates["age"] = *in.Age
	}
	if in.HasMentalIssue != nil {
		updates["has_mental_issue"] = *in.HasMentalIssue
		if !*in.HasMentalIssue {
			updates["mental_issue_details"] = nil
		}
	}
	if in.MentalIssueDetails != nil && (in.HasMentalIssue == nil || *in.HasMentalIssue) {
		updates["mental_issue_details"] = utils.SanitizeText(*in.MentalIssueDetails, 2000)
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Select(models.OnboardingColumns).
		Updates(updates).Error; err != nil {
		return models.User{}, fmt.Errorf("update onboarding: %w", err)
	}
	utils.InvalidateUserInsights(userID)
	return s.Get(ctx, userID)
}

// OnboardingCompleted reports whether the user finished onboarding.
func (s *ProfileService) OnboardingCompleted(ctx context.Context, userID string) (bool, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.OnboardingDone, nil
}
