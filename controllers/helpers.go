package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/neurowell/neurowell/config"
	"github.com/neurowell/neurowell/middleware"
	"github.com/neurowell/neurowell/models"
	"github.com/neurowell/neurowell/services"
	"github.com/neurowell/neurowell/utils"
)

// currentUserID returns the identity key resolved by the auth middleware or writes a 401.
func currentUserID(ctx *gin.Context) (string, bool) {
	id, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return id, ok
}

// requestLocation resolves ?tz= and falls back to the configured default timezone.
func requestLocation(ctx *gin.Context) *time.Location {
	if tz := strings.TrimSpace(ctx.Query("tz")); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc
		}
	}
	return config.Get().Location()
}

func setSessionCookie(ctx *gin.Context, token string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(utils.SessionCookie, token, maxAge, "/", "", config.Get().SecureCookies, true)
}

func clearSessionCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(utils.SessionCookie, "", -1, "/", "", config.Get().SecureCookies, true)
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":                   user.ID,
		"email":                user.Email,
		"provider":             user.Provider,
		"name":                 user.Name,
		"age":                  user.Age,
		"gender":               user.Gender,
		"occupation":           user.Occupation,
		"workspace":            user.Workspace,
		"sleep_habits":         user.SleepHabits,
		"physical_activities":  user.PhysicalActivities,
		"screen_time":          user.ScreenTime,
		"has_mental_issue":     user.HasMentalIssue,
		"mental_issue_details": user.MentalIssueDetails,
		"streaks":              user.Streaks,
		"last_check_in":        utils.FormatTime(user.LastCheckIn),
		"onboarding_completed": user.OnboardingDone,
		"created_at":           utils.FormatTime(&user.CreatedAt),
		"updated_at":           utils.FormatTime(&user.UpdatedAt),
	}
}

func checkInResponse(c models.CheckIn) gin.H {
	return gin.H{
		"id":           c.ID,
		"mood":         c.Mood,
		"stress":       c.Stress,
		"sleep":        c.Sleep,
		"productivity": c.Productivity,
		"notes":        c.Notes,
		"created_at":   utils.FormatTime(&c.CreatedAt),
	}
}

// respondServiceError maps service errors onto the envelope.
func respondServiceError(ctx *gin.Context, err error, code int, msg string) {
	if errors.Is(err, services.ErrUserNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}
	utils.Sugar.Errorw(msg, "err", err)
	utils.Error(ctx, http.StatusInternalServerError, code, msg)
}
