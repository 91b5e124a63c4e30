package controllers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/neurowell/neurowell/insights"
	"github.com/neurowell/neurowell/models"
	"github.com/neurowell/neurowell/services"
	"github.com/neurowell/neurowell/utils"
)

// CheckInController exposes daily check-in submission and the streak and history views.
type CheckInController struct {
	checkins *services.CheckInService
}

// NewCheckInController creates a CheckInController.
func NewCheckInController(checkins *services.CheckInService) *CheckInController {
	return &CheckInController{checkins: checkins}
}

type checkInRequest struct {
	Mood         *int    `json:"mood" binding:"required,min=0,max=10"`
	Stress       *int    `json:"stress" binding:"required,min=0,max=10"`
	Sleep        *int    `json:"sleep" binding:"required,min=0,max=12"`
	Productivity *int    `json:"productivity" binding:"required,min=0,max=10"`
	Notes        *string `json:"notes" binding:"omitempty,max=4000"`
}

// Submit records today's check-in and advances the streak.
func (c *CheckInController) Submit(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req checkInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid check-in payload")
		return
	}

	in := services.CheckInInput{
		Mood:         *req.Mood,
		Stress:       *req.Stress,
		Sleep:        *req.Sleep,
		Productivity: *req.Productivity,
	}
	if req.Notes != nil {
		in.Notes = utils.SanitizeText(*req.Notes, 1000)
	}

	res, err := c.checkins.Submit(ctx.Request.Context(), userID, in)
	if err != nil {
		utils.Sugar.Errorw("check-in failed", "user_id", userID, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to record check-in")
		return
	}

	switch res.Outcome {
	case services.OutcomeNotFound:
		utils.Error(ctx, http.StatusNotFound, 40410, res.Message)
	case services.OutcomeTooSoon:
		utils.Sugar.Debugw("check-in rejected", "user_id", userID, "retry_at", res.RetryAt)
		if res.RetryAt != nil {
			wait := int(math.Ceil(res.RetryAt.Sub(c.checkins.Now()).Seconds()))
			ctx.Header("Retry-After", strconv.Itoa(wait))
		}
		utils.ErrorWithData(ctx, http.StatusTooManyRequests, 42930, res.Message, gin.H{
			"streak":           res.Streak,
			"next_check_in_at": utils.FormatTime(res.RetryAt),
		})
	default:
		utils.Respond(ctx, http.StatusCreated, 0, res.Message, gin.H{
			"streak":   res.Streak,
			"check_in": checkInResponse(*res.CheckIn),
		})
	}
}

// Streak returns the computed streak status without modifying it.
func (c *CheckInController) Streak(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	st, err := c.checkins.Status(ctx.Request.Context(), userID)
	if err != nil {
		respondServiceError(ctx, err, 50031, "failed to load streak")
		return
	}
	utils.Success(ctx, gin.H{
		"current_streak":           st.CurrentStreak,
		"stored_streak":            st.StoredStreak,
		"last_check_in":            utils.FormatTime(st.LastCheckIn),
		"days_since_last_check_in": st.DaysSinceLastCheckIn,
		"streak_broken":            st.StreakBroken,
		"can_check_in":             st.CanCheckIn,
		"next_check_in_at":         utils.FormatTime(st.NextCheckInAt),
	})
}

// Recent returns the latest week of records, oldest-first.
func (c *CheckInController) Recent(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	rows, err := c.checkins.Recent(ctx.Request.Context(), userID, insights.WeekDays)
	if err != nil {
		respondServiceError(ctx, err, 50032, "failed to load check-ins")
		return
	}
	utils.Success(ctx, gin.H{"check_ins": checkInList(rows)})
}

// Week returns the seven-slot chart for the requested timezone.
func (c *CheckInController) Week(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	slots, err := c.checkins.Week(ctx.Request.Context(), userID, requestLocation(ctx))
	if err != nil {
		respondServiceError(ctx, err, 50033, "failed to load week")
		return
	}
	utils.Success(ctx, gin.H{
		"days":     slots,
		"averages": insights.AveragesOf(slots),
	})
}

func checkInList(rows []models.CheckIn) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		out = append(out, checkInResponse(r))
	}
	return out
}
