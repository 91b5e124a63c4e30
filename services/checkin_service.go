// Package services holds the check-in and profile workflows that touch storage.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/neurowell/neurowell/insights"
	"github.com/neurowell/neurowell/models"
	"github.com/neurowell/neurowell/streak"
	"github.com/neurowell/neurowell/utils"
)

// Clock returns the current instant.
type Clock func() time.Time

// ErrUserNotFound is returned when no profile exists for an identity key.
var ErrUserNotFound = errors.New("user not found")

// Outcome classifies a check-in submission.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeNotFound Outcome = "not_found"
	OutcomeTooSoon  Outcome = "too_soon"
)

// Result messages.
const (
	MsgAccepted = "Check-in recorded."
	MsgNotFound = "user not found"
	MsgTooSoon  = "You can only submit once every 24 hours."
)

// CheckInInput is a validated daily self-report.
type CheckInInput struct {
	Mood         int
	Stress       int
	Sleep        int
	Productivity int
	Notes        *string
}

// CheckInResult is the business outcome of a submission.
type CheckInResult struct {
	Success bool
	Outcome Outcome
	Message string
	Streak  int
	CheckIn *models.CheckIn
	RetryAt *time.Time
}

// StreakStatus is the read-only view of a user's streak at an instant.
type StreakStatus struct {
	CurrentStreak        int
	StoredStreak         int
	LastCheckIn          *time.Time
	DaysSinceLastCheckIn *int
	StreakBroken         bool
	CanCheckIn           bool
	NextCheckInAt        *time.Time
}

// SweepResult reports what a decay sweep changed.
type SweepResult struct {
	Scanned    int
	ResetCount int
	UsersReset []string
}

// CheckInService owns every write to the streak fields of a profile.
type CheckInService struct {
	db  *gorm.DB
	now Clock
}

// NewCheckInService creates the service. A nil clock uses the wall clock.
func NewCheckInService(db *gorm.DB, clock Clock) *CheckInService {
	if clock == nil {
		clock = time.Now
	}
	return &CheckInService{db: db, now: clock}
}

// Now returns the service clock in UTC.
func (s *CheckInService) Now() time.Time {
	return s.now().UTC()
}

// Submit records a check-in when at least 24 hours have passed since the previous one.
// The record insert and the streak update commit together.
func (s *CheckInService) Submit(ctx context.Context, userID string, in CheckInInput) (CheckInResult, error) {
	now := s.Now()
	var result CheckInResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "streaks", "last_check_in").
			Where("id = ?", userID).
			First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result = CheckInResult{Outcome: OutcomeNotFound, Message: MsgNotFound}
			return nil
		}
		if err != nil {
			return fmt.Errorf("load profile: %w", err)
		}

		decision := streak.Evaluate(user.LastCheckIn, now, user.Streaks)
		if !decision.Admitted {
			result = CheckInResult{
				Outcome: OutcomeTooSoon,
				Message: MsgTooSoon,
				Streak:  decision.Streak,
				RetryAt: decision.RetryAt,
			}
			return nil
		}

		record := models.CheckIn{
			UserID:       userID,
			Mood:         in.Mood,
			Stress:       in.Stress,
			Sleep:        in.Sleep,
			Productivity: in.Productivity,
			Notes:        in.Notes,
			CreatedAt:    now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("insert check-in: %w", err)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"streaks":       decision.Streak,
			"last_check_in": now,
			"updated_at":    now,
		}).Error; err != nil {
			return fmt.Errorf("update streak: %w", err)
		}

		result = CheckInResult{
			Success: true,
			Outcome: OutcomeAccepted,
			Message: MsgAccepted,
			Streak:  decision.Streak,
			CheckIn: &record,
		}
		return nil
	})
	if err != nil {
		utils.CheckInOutcomes.WithLabelValues("error").Inc()
		return CheckInResult{}, err
	}
	utils.CheckInOutcomes.WithLabelValues(string(result.Outcome)).Inc()
	if result.Success {
		utils.InvalidateUserInsights(userID)
	}
	return result, nil
}

// Status computes the streak a user would see now. It never writes.
func (s *CheckInService) Status(ctx context.Context, userID string) (StreakStatus, error) {
	now := s.Now()
	var user models.User
	err := s.db.WithContext(ctx).Select("id", "streaks", "last_check_in").Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StreakStatus{}, ErrUserNotFound
	}
	if err != nil {
		return StreakStatus{}, fmt.Errorf("load profile: %w", err)
	}

	st := StreakStatus{
		CurrentStreak: streak.Current(user.LastCheckIn, now, user.Streaks),
		StoredStreak:  user.Streaks,
		LastCheckIn:   user.LastCheckIn,
		CanCheckIn:    streak.Admissible(user.LastCheckIn, now),
	}
	if user.LastCheckIn != nil {
		days := streak.ElapsedDays(user.LastCheckIn, now)
		st.DaysSinceLastCheckIn = &days
		st.StreakBroken = streak.Decayed(user.LastCheckIn, now) && user.Streaks > 0
		if !st.CanCheckIn {
			next := user.LastCheckIn.Add(streak.MinInterval)
			st.NextCheckInAt = &next
		}
	}
	return st, nil
}

// Recent returns the user's latest n records, oldest-first.
func (s *CheckInService) Recent(ctx context.Context, userID string, n int) ([]models.CheckIn, error) {
	var rows []models.CheckIn
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(n).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load check-ins: %w", err)
	}
	return insights.LastN(rows, n), nil
}

// Week returns the seven-day view ending today in loc.
func (s *CheckInService) Week(ctx context.Context, userID string, loc *time.Location) ([]insights.DaySlot, error) {
	rows, err := s.Recent(ctx, userID, insights.WeekDays)
	if err != nil {
		return nil, err
	}
	return insights.Week(rows, s.Now(), loc), nil
}

// Sweep zeroes every streak whose last check-in is more than one whole day old.
// Each reset re-checks its guard in the UPDATE so a check-in committed after
// the candidate scan is never undone. Running it twice changes nothing more.
func (s *CheckInService) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	now = now.UTC()
	cutoff := streak.DecayCutoff(now)
	db := s.db.WithContext(ctx)

	var candidates []models.User
	if err := db.Select("id", "streaks", "last_check_in").
		Where("streaks > 0").
		Find(&candidates).Error; err != nil {
		utils.SweepRuns.WithLabelValues("error").Inc()
		return SweepResult{}, fmt.Errorf("scan profiles: %w", err)
	}

	result := SweepResult{Scanned: len(candidates), UsersReset: []string{}}
	for _, u := range candidates {
		if !streak.Decayed(u.LastCheckIn, now) {
			continue
		}
		tx := db.Model(&models.User{}).
			Where("id = ? AND streaks > 0 AND (last_check_in IS NULL OR last_check_in <= ?)", u.ID, cutoff).
			Update("streaks", 0)
		if tx.Error != nil {
			utils.SweepRuns.WithLabelValues("error").Inc()
			return result, fmt.Errorf("reset streak for %s: %w", u.ID, tx.Error)
		}
		if tx.RowsAffected > 0 {
			result.ResetCount++
			result.UsersReset = append(result.UsersReset, u.ID)
		}
	}

	utils.SweepRuns.WithLabelValues("ok").Inc()
	utils.StreakResets.Add(float64(result.ResetCount))
	utils.Sugar.Infow("streak sweep finished",
		"scanned", result.Scanned, "reset", result.ResetCount, "users", result.UsersReset)
	return result, nil
}
