package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/neurowell/neurowell/config"
	"github.com/neurowell/neurowell/insights"
	"github.com/neurowell/neurowell/models"
	"github.com/neurowell/neurowell/recommend"
	"github.com/neurowell/neurowell/services"
	"github.com/neurowell/neurowell/utils"
)

// InsightsController serves the wellness analysis, recommendations and the chat companion.
type InsightsController struct {
	db       *gorm.DB
	checkins *services.CheckInService
	profiles *services.ProfileService
	ai       *recommend.Client
}

// NewInsightsController creates an InsightsController.
func NewInsightsController(db *gorm.DB, checkins *services.CheckInService, profiles *services.ProfileService, ai *recommend.Client) *InsightsController {
	return &InsightsController{db: db, checkins: checkins, profiles: profiles, ai: ai}
}

type chatRequest struct {
	Mode    string                  `json:"mode" binding:"omitempty,oneof=chat proactive"`
	Message string                  `json:"message" binding:"max=4000"`
	History []recommend.ChatMessage `json:"conversation_history" binding:"omitempty,max=50,dive"`
}

// input gathers the profile and weekly data every recommendation needs.
func (i *InsightsController) input(ctx context.Context, userID string, loc *time.Location) (recommend.Input, error) {
	user, err := i.profiles.Get(ctx, userID)
	if err != nil {
		return recommend.Input{}, err
	}
	slots, err := i.checkins.Week(ctx, userID, loc)
	if err != nil {
		return recommend.Input{}, err
	}
	return recommend.Input{
		Profile:  user,
		Averages: insights.AveragesOf(slots),
		Recent:   insights.Populated(slots),
	}, nil
}

// Wellness scores the last seven days.
func (i *InsightsController) Wellness(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	slots, err := i.checkins.Week(ctx.Request.Context(), userID, requestLocation(ctx))
	if err != nil {
		respondServiceError(ctx, err, 50040, "failed to load check-ins")
		return
	}
	utils.Success(ctx, insights.Analyze(slots, i.checkins.Now()))
}

// Activities returns personalised activities, cached per user.
func (i *InsightsController) Activities(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	key := utils.InsightsCacheKey(userID, "activities")
	var cached recommend.Activities
	if utils.CacheGetJSON(key, &cached) {
		utils.Success(ctx, cached)
		return
	}

	in, err := i.input(ctx.Request.Context(), userID, requestLocation(ctx))
	if err != nil {
		respondServiceError(ctx, err, 50041, "failed to load profile")
		return
	}
	out := i.ai.Activities(ctx.Request.Context(), in)
	if out.Source == recommend.SourceRemote {
		utils.CacheSetJSON(key, out, config.Get().InsightsCacheTTL)
	}
	utils.Success(ctx, out)
}

// Counsellors ranks the directory for the caller, cached per user.
func (i *InsightsController) Counsellors(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	key := utils.InsightsCacheKey(userID, "counsellors")
	var cached recommend.CounsellorRecommendations
	if utils.CacheGetJSON(key, &cached) {
		utils.Success(ctx, cached)
		return
	}

	in, err := i.input(ctx.Request.Context(), userID, requestLocation(ctx))
	if err != nil {
		respondServiceError(ctx, err, 50042, "failed to load profile")
		return
	}
	var directory []models.Counsellor
	if err := i.db.WithContext(ctx.Request.Context()).Order("rating DESC").Find(&directory).Error; err != nil {
		utils.Sugar.Errorw("load counsellors failed", "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to load counsellors")
		return
	}
	for idx := range directory {
		directory[idx] = directory[idx].WithDefaults()
	}

	out := i.ai.Counsellors(ctx.Request.Context(), in, directory)
	if out.Source == recommend.SourceRemote {
		utils.CacheSetJSON(key, out, config.Get().InsightsCacheTTL)
	}
	utils.Success(ctx, out)
}

// Chat answers a companion message. Proactive mode opens the conversation without a message.
func (i *InsightsController) Chat(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req chatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid chat payload")
		return
	}
	mode := req.Mode
	if mode == "" {
		mode = recommend.ModeChat
	}
	message := utils.SanitizeString(req.Message, 4000)
	if mode == recommend.ModeChat && message == "" {
		utils.Error(ctx, http.StatusBadRequest, 40051, "message is required")
		return
	}

	// Replies only depend on mode and message when there is no history to thread.
	cacheable := len(req.History) == 0
	key := utils.ChatCacheKey(userID, mode, message)
	if cacheable {
		var cached recommend.ChatReply
		if utils.CacheGetJSON(key, &cached) {
			utils.Success(ctx, cached)
			return
		}
	}

	in, err := i.input(ctx.Request.Context(), userID, requestLocation(ctx))
	if err != nil {
		respondServiceError(ctx, err, 50050, "failed to load profile")
		return
	}
	reply := i.ai.Chat(ctx.Request.Context(), recommend.ChatInput{
		Input:   in,
		Mode:    mode,
		Message: message,
		History: req.History,
	})
	if cacheable {
		utils.CacheSetJSON(key, reply, config.Get().ChatCacheTTL)
	}
	utils.Success(ctx, reply)
}
