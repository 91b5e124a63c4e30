// Package insights derives chart data, averages and wellness analysis from check-in records.
package insights

import (
	"sort"
	"time"

	"github.com/neurowell/neurowell/models"
)

// WeekDays is the number of calendar-day slots in a week view.
const WeekDays = 7

// DaySlot is one calendar day of the week view. Metric fields are nil for placeholder days.
type DaySlot struct {
	Date         string     `json:"date"`
	Label        string     `json:"label"`
	HasData      bool       `json:"has_data"`
	Mood         *int       `json:"mood"`
	Stress       *int       `json:"stress"`
	Sleep        *int       `json:"sleep"`
	Productivity *int       `json:"productivity"`
	Notes        *string    `json:"notes"`
	CreatedAt    *time.Time `json:"created_at"`
}

// Averages are per-metric means over the populated days.
type Averages struct {
	Mood         float64 `json:"avg_mood"`
	Stress       float64 `json:"avg_stress"`
	Sleep        float64 `json:"avg_sleep"`
	Productivity float64 `json:"avg_productivity"`
	DataPoints   int     `json:"data_points"`
}

// DefaultAverages are used when there is no data at all.
var DefaultAverages = Averages{Mood: 5, Stress: 5, Sleep: 7, Productivity: 5}

// LastN keeps the n most recent records by creation time and returns them oldest-first.
// The input slice is not modified.
func LastN(records []models.CheckIn, n int) []models.CheckIn {
	if n <= 0 || len(records) == 0 {
		return []models.CheckIn{}
	}
	sorted := make([]models.CheckIn, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
		sorted[i], sorted[j] = sorted[j], sorted[i]
	}
	return sorted
}

// Week lays records onto the seven calendar days ending today in loc, oldest-first.
// A day holds its latest record; days without one are placeholders.
func Week(records []models.CheckIn, now time.Time, loc *time.Location) []DaySlot {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	latest := make(map[string]models.CheckIn, len(records))
	for _, r := range records {
		key := r.CreatedAt.In(loc).Format(time.DateOnly)
		if cur, ok := latest[key]; !ok || r.CreatedAt.After(cur.CreatedAt) {
			latest[key] = r
		}
	}

	slots := make([]DaySlot, 0, WeekDays)
	for i := WeekDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		slot := DaySlot{Date: day.Format(time.DateOnly), Label: day.Format("Jan 2")}
		if r, ok := latest[slot.Date]; ok {
			created := r.CreatedAt
			mood, stress, sleep, prod := r.Mood, r.Stress, r.Sleep, r.Productivity
			slot.HasData = true
			slot.Mood, slot.Stress, slot.Sleep, slot.Productivity = &mood, &stress, &sleep, &prod
			slot.Notes = r.Notes
			slot.CreatedAt = &created
		}
		slots = append(slots, slot)
	}
	return slots
}

// AveragesOf returns the metric means over populated slots, or DefaultAverages when none are populated.
func AveragesOf(slots []DaySlot) Averages {
	var sum Averages
	for _, s := range slots {
		if !s.HasData {
			continue
		}
		sum.Mood += float64(*s.Mood)
		sum.Stress += float64(*s.Stress)
		sum.Sleep += float64(*s.Sleep)
		sum.Productivity += float64(*s.Productivity)
		sum.DataPoints++
	}
	if sum.DataPoints == 0 {
		return DefaultAverages
	}
	n := float64(sum.DataPoints)
	return Averages{
		Mood:         sum.Mood / n,
		Stress:       sum.Stress / n,
		Sleep:        sum.Sleep / n,
		Productivity: sum.Productivity / n,
		DataPoints:   sum.DataPoints,
	}
}

// Populated returns only the slots that carry a record.
func Populated(slots []DaySlot) []DaySlot {
	out := make([]DaySlot, 0, len(slots))
	for _, s := range slots {
		if s.HasData {
			out = append(out, s)
		}
	}
	return out
}
