package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neurowell/neurowell/services"
	"github.com/neurowell/neurowell/utils"
)

// OnboardingController stores the questionnaire answered after sign-up.
type OnboardingController struct {
	profiles *services.ProfileService
}

// NewOnboardingController creates an OnboardingController.
func NewOnboardingController(profiles *services.ProfileService) *OnboardingController {
	return &OnboardingController{profiles: profiles}
}

type onboardingRequest struct {
	Name               *string `json:"name" binding:"omitempty,max=128"`
	Age                *int    `json:"age" binding:"omitempty,min=1,max=120"`
	Gender             *string `json:"gender" binding:"omitempty,max=32"`
	Occupation         *string `json:"occupation" binding:"omitempty,max=128"`
	Workspace          *string `json:"workspace" binding:"omitempty,max=64"`
	SleepHabits        *string `json:"sleep_habits" binding:"omitempty,max=64"`
	PhysicalActivities *string `json:"physical_activities" binding:"omitempty,max=64"`
	ScreenTime         *string `json:"screen_time" binding:"omitempty,max=64"`
	HasMentalIssue     *bool   `json:"has_mental_issue"`
	MentalIssueDetails *string `json:"mental_issue_details" binding:"omitempty,max=2000"`
}

// Submit merges the answers into the caller's profile.
func (o *OnboardingController) Submit(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req onboardingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid onboarding payload")
		return
	}

	user, err := o.profiles.Onboard(ctx.Request.Context(), userID, services.OnboardingInput{
		Name:               req.Name,
		Age:                req.Age,
		Gender:             req.Gender,
		Occupation:         req.Occupation,
		Workspace:          req.Workspace,
		SleepHabits:        req.SleepHabits,
		PhysicalActivities: req.PhysicalActivities,
		ScreenTime:         req.ScreenTime,
		HasMentalIssue:     req.HasMentalIssue,
		MentalIssueDetails: req.MentalIssueDetails,
	})
	if err != nil {
		respondServiceError(ctx, err, 50020, "failed to save onboarding")
		return
	}
	utils.Success(ctx, userResponse(user))
}

// Status reports whether onboarding has been completed.
func (o *OnboardingController) Status(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	done, err := o.profiles.OnboardingCompleted(ctx.Request.Context(), userID)
	if err != nil {
		respondServiceError(ctx, err, 50021, "failed to load onboarding status")
		return
	}
	utils.Success(ctx, gin.H{"completed": done})
}
