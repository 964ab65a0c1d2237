package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binday/internal/models"
)

func TestStateLabel(t *testing.T) {
	// Tuesday
	now := time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		date time.Time
		want string
	}{
		{day(2024, 6, 3), StateCollected},
		{day(2024, 6, 4), "Today"},
		{day(2024, 6, 5), "Tomorrow"},
		{day(2024, 6, 7), "This Week: Friday"},
		{day(2024, 6, 9), "This Week: Sunday"},
		{day(2024, 6, 10), "Next Week: Monday"},
		{day(2024, 6, 16), "Next Week: Sunday"},
		{day(2024, 6, 17), "Future: 2024-06-17"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, StateLabel(tt.date, now))
		})
	}
}

func TestDaysBetween_AcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	a := time.Date(2024, 3, 30, 12, 0, 0, 0, loc)
	b := time.Date(2024, 4, 2, 0, 0, 0, 0, loc)
	assert.Equal(t, 3, DaysBetween(a, b))
}

func TestBuildView(t *testing.T) {
	now := time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC)
	state := models.CollectionState{
		PremisesID: "1001",
		Dates: map[models.Category]models.DateValue{
			models.General:   models.ResolvedDate(day(2024, 6, 3)),
			models.Recycling: models.ResolvedDate(day(2024, 6, 5)),
			models.Garden:    {Kind: models.NoCollection},
		},
		LastModified: "Tue, 04 Jun 2024 06:00:00 GMT",
	}

	v := BuildView(state, now)
	require.Len(t, v.Categories, 3)

	general := v.Categories[0]
	assert.Equal(t, models.General, general.Category)
	assert.Equal(t, "BLACK", general.Code)
	assert.Equal(t, "General Waste", general.Label)
	assert.Equal(t, StateCollected, general.State)
	assert.Nil(t, general.Days)

	recycling := v.Categories[1]
	require.NotNil(t, recycling.Date)
	assert.Equal(t, "2024-06-05", *recycling.Date)
	require.NotNil(t, recycling.Days)
	assert.Equal(t, 1, *recycling.Days)
	assert.Equal(t, "mdi:recycle", recycling.Icon)

	garden := v.Categories[2]
	assert.Nil(t, garden.Date)
	assert.Equal(t, "no_collection", garden.Sentinel)
	assert.Equal(t, StateNone, garden.State)

	require.NotNil(t, v.Next)
	assert.Equal(t, models.Recycling, v.Next.Category)
	assert.Nil(t, v.UpdatedAt)
}

func TestBuildView_AwaitingData(t *testing.T) {
	v := BuildView(models.AwaitingState("1001"), time.Now())

	for _, c := range v.Categories {
		assert.Equal(t, StateAwaiting, c.State)
		assert.Equal(t, "awaiting_data", c.Sentinel)
	}
	assert.Nil(t, v.Next)
}
