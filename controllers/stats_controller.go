package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/neurowell/neurowell/models"
	"github.com/neurowell/neurowell/services"
	"github.com/neurowell/neurowell/streak"
	"github.com/neurowell/neurowell/utils"
)

// StatsController provides service-wide statistics such as user and check-in counts.
type StatsController struct {
	db    *gorm.DB
	clock services.Clock
}

// NewStatsController creates a new StatsController instance. A nil clock uses the wall clock.
func NewStatsController(db *gorm.DB, clock services.Clock) *StatsController {
	if clock == nil {
		clock = time.Now
	}
	return &StatsController{db: db, clock: clock}
}

// GetStats returns aggregate counts.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount int64
	var checkInCount int64
	var todayCount int64
	var activeStreaks int64
	var counsellorCount int64

	db := s.db.WithContext(ctx.Request.Context())
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}

	if err := db.Model(&models.CheckIn{}).Count(&checkInCount).Error; err != nil {
		checkInCount = 0
	}

	now := s.clock().UTC()
	startOfDay := now.Truncate(24 * time.Hour)
	if err := db.Model(&models.CheckIn{}).Where("created_at >= ?", startOfDay).Count(&todayCount).Error; err != nil {
		todayCount = 0
	}

	if err := db.Model(&models.User{}).
		Where("streaks > 0 AND last_check_in > ?", streak.DecayCutoff(now)).
		Count(&activeStreaks).Error; err != nil {
		activeStreaks = 0
	}

	if err := db.Model(&models.Counsellor{}).Count(&counsellorCount).Error; err != nil {
		counsellorCount = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":          userCount,
		"check_in_count":      checkInCount,
		"today_check_ins":     todayCount,
		"active_streak_count": activeStreaks,
		"counsellor_count":    counsellorCount,
	})
}
