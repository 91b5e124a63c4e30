package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurowell/neurowell/models"
)

var now = time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)

func rec(id string, ago time.Duration, mood int) models.CheckIn {
	return models.CheckIn{ID: id, Mood: mood, Stress: 4, Sleep: 7, Productivity: 6, CreatedAt: now.Add(-ago)}
}

func TestLastN(t *testing.T) {
	in := []models.CheckIn{
		rec("c", 2*time.Hour, 3),
		rec("a", 72*time.Hour, 1),
		rec("b", 30*time.Hour, 2),
	}
	out := LastN(in, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].ID)
	assert.Equal(t, "c", out[1].ID)
	assert.Equal(t, "c", in[0].ID, "input must stay untouched")

	assert.Len(t, LastN(in, 10), 3)
	assert.Empty(t, LastN(nil, 7))
	assert.Empty(t, LastN(in, 0))
}

func TestWeek_AlwaysSevenSlots(t *testing.T) {
	for n := 0; n <= 9; n++ {
		var records []models.CheckIn
		for i := 0; i < n; i++ {
			records = append(records, rec("r", time.Duration(i)*25*time.Hour, 5))
		}
		slots := Week(records, now, time.UTC)
		require.Len(t, slots, WeekDays, "n=%d", n)
		assert.Equal(t, "2024-05-04", slots[0].Date)
		assert.Equal(t, "2024-05-10", slots[6].Date)
		assert.Equal(t, "May 10", slots[6].Label)
	}
}

func TestWeek_PlacesRecordsAndPlaceholders(t *testing.T) {
	records := []models.CheckIn{
		rec("today-early", 10*time.Hour, 4),
		rec("today-late", 1*time.Hour, 8),
		rec("three-days", 72*time.Hour, 6),
		rec("too-old", 9*24*time.Hour, 2),
	}
	slots := Week(records, now, time.UTC)

	today := slots[6]
	require.True(t, today.HasData)
	assert.Equal(t, 8, *today.Mood, "latest record of the day wins")

	assert.True(t, slots[3].HasData)
	assert.Equal(t, 6, *slots[3].Mood)

	assert.False(t, slots[5].HasData)
	assert.Nil(t, slots[5].Mood)
	assert.Len(t, Populated(slots), 2)
}

func TestWeek_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	// 15:00 UTC is already the 11th at UTC+10
	slots := Week([]models.CheckIn{rec("x", time.Hour, 7)}, now, loc)
	assert.Equal(t, "2024-05-11", slots[6].Date)
	assert.True(t, slots[6].HasData)
}

func TestAveragesOf(t *testing.T) {
	assert.Equal(t, DefaultAverages, AveragesOf(Week(nil, now, time.UTC)))

	slots := Week([]models.CheckIn{
		{Mood: 4, Stress: 6, Sleep: 5, Productivity: 3, CreatedAt: now.Add(-time.Hour)},
		{Mood: 8, Stress: 2, Sleep: 9, Productivity: 7, CreatedAt: now.Add(-48 * time.Hour)},
	}, now, time.UTC)
	avg := AveragesOf(slots)
	assert.Equal(t, 2, avg.DataPoints)
	assert.InDelta(t, 6.0, avg.Mood, 1e-9)
	assert.InDelta(t, 4.0, avg.Stress, 1e-9)
	assert.InDelta(t, 7.0, avg.Sleep, 1e-9)
	assert.InDelta(t, 5.0, avg.Productivity, 1e-9)
}
