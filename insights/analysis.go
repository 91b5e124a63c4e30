package insights

import (
	"math"
	"time"
)

// Metric weights of the overall wellness score.
const (
	weightMood         = 0.30
	weightStress       = 0.25
	weightSleep        = 0.25
	weightProductivity = 0.20

	idealSleepHours = 8.0
)

// Trend directions. For stress, improving means decreasing.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// MetricScore is the per-metric part of an Analysis.
type MetricScore struct {
	Score   float64 `json:"score"`
	Average float64 `json:"average"`
	Status  string  `json:"status"`
}

// Analysis is the weekly wellness report.
type Analysis struct {
	OverallScore    float64                `json:"overall_score"`
	Breakdown       map[string]MetricScore `json:"score_breakdown"`
	Trends          map[string]string      `json:"trends"`
	Recommendations []string               `json:"recommendations"`
	DataPoints      int                    `json:"data_points"`
	AnalyzedAt      time.Time              `json:"analysis_date"`
}

// Analyze scores the populated slots of a week view.
func Analyze(slots []DaySlot, now time.Time) Analysis {
	data := Populated(slots)
	if len(data) == 0 {
		return Analysis{
			Breakdown:       map[string]MetricScore{},
			Trends:          map[string]string{},
			Recommendations: []string{"No data available for analysis"},
			AnalyzedAt:      now,
		}
	}

	avg := AveragesOf(data)
	mood := ratio(avg.Mood, 10)
	stress := 0.0
	if avg.Stress > 0 {
		stress = (10 - avg.Stress) / 10 * 100
	}
	sleep := math.Min(ratio(avg.Sleep, idealSleepHours), 100)
	prod := ratio(avg.Productivity, 10)

	overall := mood*weightMood + stress*weightStress + sleep*weightSleep + prod*weightProductivity
	trends := Trends(data)

	return Analysis{
		OverallScore: round1(overall),
		Breakdown: map[string]MetricScore{
			"mood":         {Score: round1(mood), Average: round1(avg.Mood), Status: Status(mood)},
			"stress":       {Score: round1(stress), Average: round1(avg.Stress), Status: Status(stress)},
			"sleep":        {Score: round1(sleep), Average: round1(avg.Sleep), Status: Status(sleep)},
			"productivity": {Score: round1(prod), Average: round1(avg.Productivity), Status: Status(prod)},
		},
		Trends:          trends,
		Recommendations: Recommendations(avg, trends),
		DataPoints:      len(data),
		AnalyzedAt:      now,
	}
}

// Status buckets a 0-100 metric score.
func Status(score float64) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "fair"
	default:
		return "needs_attention"
	}
}

// Trends compares the first and last populated day of each metric.
func Trends(data []DaySlot) map[string]string {
	trends := map[string]string{}
	if len(data) < 2 {
		return trends
	}
	first, last := data[0], data[len(data)-1]
	trends["mood"] = direction(*first.Mood, *last.Mood, false)
	trends["stress"] = direction(*first.Stress, *last.Stress, true)
	trends["sleep"] = direction(*first.Sleep, *last.Sleep, false)
	trends["productivity"] = direction(*first.Productivity, *last.Productivity, false)
	return trends
}

// Recommendations produces advice text from averages and trends.
func Recommendations(avg Averages, trends map[string]string) []string {
	var out []string
	switch {
	case avg.Mood < 5:
		out = append(out, "Your mood has been low. Consider activities that bring you joy, like hobbies or spending time with loved ones.")
	case avg.Mood > 7:
		out = append(out, "Great mood! Keep up the positive activities that are working for you.")
	}
	switch {
	case avg.Stress > 7:
		out = append(out, "High stress detected. Try daily meditation, deep breathing exercises, or consider talking to a counselor.")
	case avg.Stress < 4:
		out = append(out, "Excellent stress management! Continue your current stress-reduction techniques.")
	}
	switch {
	case avg.Sleep < 6:
		out = append(out, "Insufficient sleep. Aim for 7-9 hours nightly. Try a consistent bedtime routine and limit screen time before bed.")
	case avg.Sleep > 8:
		out = append(out, "Good sleep habits! Maintain your current sleep schedule for optimal wellness.")
	}
	switch {
	case avg.Productivity < 5:
		out = append(out, "Low productivity. Try breaking tasks into smaller chunks and taking regular breaks to maintain focus.")
	case avg.Productivity > 7:
		out = append(out, "High productivity! Keep up your effective work strategies.")
	}
	if trends["mood"] == TrendDeclining {
		out = append(out, "Mood trend is declining. Consider reaching out for support or trying new mood-boosting activities.")
	}
	if trends["stress"] == TrendDeclining {
		out = append(out, "Stress levels are increasing. Prioritize stress management techniques and consider professional help if needed.")
	}
	if len(out) == 0 {
		out = append(out, "Your wellness metrics look balanced. Continue maintaining your current healthy habits!")
	}
	return out
}

func direction(first, last int, inverted bool) string {
	if inverted {
		first, last = last, first
	}
	switch {
	case last > first:
		return TrendImproving
	case last < first:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func ratio(v, full float64) float64 {
	if v <= 0 {
		return 0
	}
	return v / full * 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
