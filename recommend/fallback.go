package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/neurowell/neurowell/insights"
	"github.com/neurowell/neurowell/models"
)

const maxCounsellorMatches = 5

// FallbackActivities picks activities from the weekly averages.
func FallbackActivities(avg insights.Averages) []Activity {
	var out []Activity
	if avg.Mood < 5 {
		out = append(out, Activity{
			ID:          "mood-boost-1",
			Title:       "Gratitude Journaling",
			Description: "Write down 3 things you're grateful for today. This simple practice can significantly improve your mood.",
			Category:    "mindfulness",
			Duration:    "10-15 minutes",
			Difficulty:  "Easy",
			Priority:    "High",
			Benefits:    []string{"Improved mood", "Better perspective", "Reduced anxiety"},
		})
	}
	if avg.Stress > 6 {
		out = append(out, Activity{
			ID:          "stress-relief-1",
			Title:       "Deep Breathing Exercise",
			Description: "Practice the 4-7-8 breathing technique: Inhale for 4, hold for 7, exhale for 8.",
			Category:    "stress-relief",
			Duration:    "5-10 minutes",
			Difficulty:  "Easy",
			Priority:    "High",
			Benefits:    []string{"Reduced stress", "Lower heart rate", "Better focus"},
		})
	}
	if avg.Sleep < 6 {
		out = append(out, Activity{
			ID:          "sleep-improvement-1",
			Title:       "Digital Sunset",
			Description: "Turn off all screens 1 hour before bedtime and engage in calming activities.",
			Category:    "sleep",
			Duration:    "60 minutes",
			Difficulty:  "Medium",
			Priority:    "High",
			Benefits:    []string{"Better sleep quality", "Reduced blue light", "Improved melatonin"},
		})
	}
	return append(out,
		Activity{
			ID:          "general-1",
			Title:       "Mindful Walking",
			Description: "Take a 15-minute walk while focusing on your surroundings and breathing.",
			Category:    "mindfulness",
			Duration:    "15 minutes",
			Difficulty:  "Easy",
			Priority:    "Medium",
			Benefits:    []string{"Physical activity", "Mental clarity", "Stress reduction"},
		},
		Activity{
			ID:          "general-2",
			Title:       "Progressive Muscle Relaxation",
			Description: "Tense and relax each muscle group from head to toe for complete relaxation.",
			Category:    "stress-relief",
			Duration:    "20 minutes",
			Difficulty:  "Medium",
			Priority:    "Medium",
			Benefits:    []string{"Muscle tension relief", "Better sleep", "Reduced anxiety"},
		},
	)
}

type matchRule struct {
	applies     func(avg insights.Averages, disclosure string) bool
	specialties []string
	points      int
	reason      string
}

var matchRules = []matchRule{
	{
		applies: func(avg insights.Averages, d string) bool {
			return avg.Mood < 4 || strings.Contains(d, "anxiety") || strings.Contains(d, "depression")
		},
		specialties: []string{"anxiety", "depression"},
		points:      3,
		reason:      "specializes in mood disorders",
	},
	{
		applies: func(avg insights.Averages, d string) bool {
			return avg.Stress > 7 || strings.Contains(d, "stress")
		},
		specialties: []string{"stress-management"},
		points:      2,
		reason:      "expert in stress management",
	},
	{
		applies: func(_ insights.Averages, d string) bool {
			return strings.Contains(d, "trauma") || strings.Contains(d, "ptsd")
		},
		specialties: []string{"trauma", "ptsd"},
		points:      3,
		reason:      "trauma specialist",
	},
	{
		applies: func(_ insights.Averages, d string) bool {
			return strings.Contains(d, "relationship") || strings.Contains(d, "family")
		},
		specialties: []string{"relationship-counseling", "family-therapy"},
		points:      2,
		reason:      "relationship and family therapy expert",
	},
	{
		applies: func(_ insights.Averages, d string) bool {
			return strings.Contains(d, "addiction") || strings.Contains(d, "substance")
		},
		specialties: []string{"addiction", "substance-abuse"},
		points:      3,
		reason:      "addiction specialist",
	},
}

// FallbackCounsellors ranks the directory with fixed matching rules.
func FallbackCounsellors(in Input, directory []models.Counsellor) CounsellorRecommendations {
	disclosure := strings.ToLower(in.disclosure())
	avg := in.Averages

	matches := []CounsellorMatch{}
	for _, c := range directory {
		score := 5
		var reasons []string
		for _, rule := range matchRules {
			if !rule.applies(avg, disclosure) || !hasAny(c, rule.specialties) {
				continue
			}
			score += rule.points
			reasons = append(reasons, rule.reason)
		}
		if score < 6 {
			continue
		}
		priority := "Medium"
		if score >= 8 {
			priority = "High"
		}
		reason := "Good general fit for your needs"
		if len(reasons) > 0 {
			reason = "Recommended because they " + strings.Join(reasons, ", ")
		}
		matches = append(matches, CounsellorMatch{
			CounsellorID: c.ID,
			MatchScore:   float64(min(score, 10)),
			Reason:       reason,
			Priority:     priority,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].MatchScore > matches[j].MatchScore })
	if len(matches) > maxCounsellorMatches {
		matches = matches[:maxCounsellorMatches]
	}

	var analysis strings.Builder
	fmt.Fprintf(&analysis, "Based on your wellness data showing mood at %.1f/10 and stress at %.1f/10, ", avg.Mood, avg.Stress)
	if avg.Mood < 4 {
		analysis.WriteString("you may benefit from mood disorder specialists. ")
	}
	if avg.Stress > 7 {
		analysis.WriteString("Stress management experts could help with your high stress levels. ")
	}
	analysis.WriteString("These counsellors are selected based on your specific needs and current mental health patterns.")

	return CounsellorRecommendations{Recommendations: matches, Analysis: analysis.String(), Source: SourceFallback}
}

func hasAny(c models.Counsellor, specialties []string) bool {
	for _, s := range specialties {
		if c.HasSpecialty(s) {
			return true
		}
	}
	return false
}

var chatTopics = []struct {
	words []string
	reply string
}{
	{
		words: []string{"exam", "test", "study", "studying"},
		reply: "Exams can be really stressful! Here are some quick tips:\n\n1. **Break it down**: Study in 25-minute chunks with 5-minute breaks\n2. **Get enough sleep**: Your brain needs rest to process information\n3. **Stay hydrated**: Dehydration affects concentration\n4. **Practice breathing**: 4 seconds in, 4 seconds hold, 4 seconds out\n\nWhat subject are you most worried about?",
	},
	{
		words: []string{"stress", "stressed", "overwhelmed", "pressure"},
		reply: "I hear you're feeling stressed. That's completely normal. Try this:\n\n**Right now**: Take 3 deep breaths and name 3 things you can see around you.\n\n**For ongoing stress**:\n- Set small, achievable goals\n- Take regular breaks\n- Talk to someone you trust\n\nWhat's the biggest source of stress right now?",
	},
	{
		words: []string{"sleep", "tired", "exhausted", "insomnia"},
		reply: "Sleep matters a lot for how you feel. Try these:\n\n**Tonight**:\n- No screens 1 hour before bed\n- Keep your room cool and dark\n- Try the 4-7-8 breathing technique\n\n**If you can't sleep**: Don't force it. Get up, do something relaxing for 20 minutes, then try again.\n\nHow many hours of sleep are you getting?",
	},
	{
		words: []string{"anxious", "anxiety", "nervous", "panic", "worried"},
		reply: "Anxiety is so common. Here's what helps:\n\n**Immediate relief**:\n- Grounding technique: 5 things you see, 4 you hear, 3 you touch, 2 you smell, 1 you taste\n- Progressive muscle relaxation\n\n**Long-term**:\n- Practice mindfulness\n- Regular exercise\n- Talk to a counselor if it's severe\n\nWhat's making you most anxious right now?",
	},
}

const supportiveReply = "I'm here to listen and help. It sounds like you're going through a tough time. Remember:\n\n- You're not alone in this\n- It's okay to ask for help\n- Small steps count\n- This feeling won't last forever\n\nWhat's the most important thing you'd like to work on right now?"

// FallbackChat answers a chat turn with canned supportive content.
func FallbackChat(in ChatInput) string {
	if in.Mode == ModeProactive {
		return fmt.Sprintf("I noticed your mood is at %s/10 and stress at %s/10. What's been going on lately?",
			trimFloat(in.Averages.Mood), trimFloat(in.Averages.Stress))
	}
	msg := strings.ToLower(in.Message)
	for _, topic := range chatTopics {
		for _, w := range topic.words {
			if strings.Contains(msg, w) {
				return topic.reply
			}
		}
	}
	return supportiveReply
}

func trimFloat(v float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0")
}
