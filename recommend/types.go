package recommend

import (
	"github.com/neurowell/neurowell/insights"
	"github.com/neurowell/neurowell/models"
)

// Where a result came from.
const (
	SourceRemote   = "remote"
	SourceFallback = "fallback"
)

// Chat modes.
const (
	ModeChat      = "chat"
	ModeProactive = "proactive"
)

// Activity is a suggested wellness activity.
type Activity struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Duration    string   `json:"duration"`
	Difficulty  string   `json:"difficulty"`
	Priority    string   `json:"priority"`
	Benefits    []string `json:"benefits"`
}

// Activities is the answer of the activities endpoint.
type Activities struct {
	Activities []Activity `json:"activities"`
	Source     string     `json:"source"`
}

// CounsellorMatch ranks one directory entry for a user.
type CounsellorMatch struct {
	CounsellorID string  `json:"counsellor_id"`
	MatchScore   float64 `json:"match_score"`
	Reason       string  `json:"reason"`
	Priority     string  `json:"priority"`
}

// CounsellorRecommendations is the answer of the counsellor endpoint.
type CounsellorRecommendations struct {
	Recommendations []CounsellorMatch `json:"recommendations"`
	Analysis        string            `json:"analysis"`
	Source          string            `json:"source"`
}

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role" binding:"required,oneof=user assistant"`
	Content string `json:"content" binding:"required,max=4000"`
}

// ChatReply is the companion's answer.
type ChatReply struct {
	Reply  string `json:"bot_response"`
	Source string `json:"source"`
}

// Input is the user context sent with every recommendation call.
type Input struct {
	Profile  models.User
	Averages insights.Averages
	Recent   []insights.DaySlot
}

// ChatInput is a chat turn with the user's context.
type ChatInput struct {
	Input
	Mode    string
	Message string
	History []ChatMessage
}

type profilePayload struct {
	Name               string  `json:"name"`
	Age                *int    `json:"age"`
	Gender             string  `json:"gender"`
	Occupation         string  `json:"occupation"`
	Workspace          string  `json:"workspace"`
	SleepHabits        string  `json:"sleep_habits"`
	PhysicalActivities string  `json:"physical_activities"`
	ScreenTime         *string `json:"screen_time"`
	HasMentalIssue     *bool   `json:"has_mental_issue"`
	MentalIssueDetails *string `json:"mental_issue_details"`
}

type wellnessPayload struct {
	AvgMood         float64            `json:"avg_mood"`
	AvgStress       float64            `json:"avg_stress"`
	AvgSleep        float64            `json:"avg_sleep"`
	AvgProductivity float64            `json:"avg_productivity"`
	RecentData      []insights.DaySlot `json:"recent_data"`
}

type recommendRequest struct {
	UserProfile  profilePayload      `json:"user_profile"`
	WellnessData wellnessPayload     `json:"wellness_data"`
	Counsellors  []models.Counsellor `json:"counsellors,omitempty"`
}

type chatRequest struct {
	Mode                string         `json:"mode"`
	Message             string         `json:"message"`
	TestData            map[string]any `json:"test_data"`
	ConversationHistory []ChatMessage  `json:"conversation_history"`
}

func (in Input) profile() profilePayload {
	u := in.Profile
	return profilePayload{
		Name:               u.Name,
		Age:                u.Age,
		Gender:             u.Gender,
		Occupation:         u.Occupation,
		Workspace:          u.Workspace,
		SleepHabits:        u.SleepHabits,
		PhysicalActivities: u.PhysicalActivities,
		ScreenTime:         u.ScreenTime,
		HasMentalIssue:     u.HasMentalIssue,
		MentalIssueDetails: u.MentalIssueDetails,
	}
}

func (in Input) wellness() wellnessPayload {
	recent := in.Recent
	if recent == nil {
		recent = []insights.DaySlot{}
	}
	return wellnessPayload{
		AvgMood:         in.Averages.Mood,
		AvgStress:       in.Averages.Stress,
		AvgSleep:        in.Averages.Sleep,
		AvgProductivity: in.Averages.Productivity,
		RecentData:      recent,
	}
}

func (in Input) disclosure() string {
	if in.Profile.MentalIssueDetails == nil {
		return ""
	}
	return *in.Profile.MentalIssueDetails
}
