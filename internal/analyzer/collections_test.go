package analyzer

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binday/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func row(c models.Category, d time.Time) models.ScheduleRow {
	return models.ScheduleRow{PremisesID: "1001", Category: c, Date: d}
}

func TestNearestFutureDate_PrefersTodayOverPastAndFuture(t *testing.T) {
	now := time.Date(2024, 6, 4, 15, 30, 0, 0, time.UTC)
	rows := []models.ScheduleRow{
		row(models.General, day(2024, 6, 3)),
		row(models.General, day(2024, 6, 4)),
		row(models.General, day(2024, 6, 7)),
	}

	got, ok := NearestFutureDate(rows, models.General, now)
	require.True(t, ok)
	assert.Equal(t, day(2024, 6, 4), got)
}

func TestNearestFutureDate_ExcludesPastEvenWhenCloser(t *testing.T) {
	now := time.Date(2024, 6, 4, 8, 0, 0, 0, time.UTC)
	rows := []models.ScheduleRow{
		row(models.Recycling, day(2024, 6, 3)),
		row(models.Recycling, day(2024, 6, 18)),
	}

	got, ok := NearestFutureDate(rows, models.Recycling, now)
	require.True(t, ok)
	assert.Equal(t, day(2024, 6, 18), got)
}

func TestNearestFutureDate_NoCandidates(t *testing.T) {
	now := time.Date(2024, 6, 4, 8, 0, 0, 0, time.UTC)
	rows := []models.ScheduleRow{
		row(models.Garden, day(2024, 5, 1)),
		row(models.General, day(2024, 6, 10)),
	}

	_, ok := NearestFutureDate(rows, models.Garden, now)
	assert.False(t, ok)
	_, ok = NearestFutureDate(nil, models.General, now)
	assert.False(t, ok)
}

func TestNearestFutureDate_NeverBeforeToday(t *testing.T) {
	start := day(2024, 5, 1)
	var rows []models.ScheduleRow
	for i := 0; i < 60; i += 3 {
		rows = append(rows, row(models.General, start.AddDate(0, 0, i)))
	}

	for i := 0; i < 70; i++ {
		now := start.AddDate(0, 0, i).Add(13 * time.Hour)
		got, ok := NearestFutureDate(rows, models.General, now)
		if !ok {
			continue
		}
		assert.False(t, got.Before(NormalizeDate(now)), "now=%s got=%s", now, got)
	}
}

func TestResolve_AlwaysHasEveryCategory(t *testing.T) {
	now := time.Date(2024, 6, 4, 8, 0, 0, 0, time.UTC)
	rows := []models.ScheduleRow{
		row(models.Recycling, day(2024, 6, 5)),
		row(models.General, day(2024, 6, 3)),
	}

	want := map[models.Category]models.DateValue{
		models.Recycling: models.ResolvedDate(day(2024, 6, 5)),
		models.General:   {Kind: models.NoCollection},
		models.Garden:    {Kind: models.NoCollection},
	}
	if diff := cmp.Diff(want, Resolve(rows, now)); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestNextUpcoming(t *testing.T) {
	dates := map[models.Category]models.DateValue{
		models.Recycling: models.ResolvedDate(day(2024, 6, 5)),
		models.General:   models.ResolvedDate(day(2024, 6, 3)),
		models.Garden:    {Kind: models.NoCollection},
	}

	t.Run("past category excluded", func(t *testing.T) {
		c, d, ok := NextUpcoming(dates, time.Date(2024, 6, 4, 8, 0, 0, 0, time.UTC))
		require.True(t, ok)
		assert.Equal(t, models.Recycling, c)
		assert.Equal(t, day(2024, 6, 5), d)
	})

	t.Run("nearest future wins", func(t *testing.T) {
		c, _, ok := NextUpcoming(dates, time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC))
		require.True(t, ok)
		assert.Equal(t, models.General, c)
	})

	t.Run("sentinels only", func(t *testing.T) {
		_, _, ok := NextUpcoming(models.AwaitingState("1").Dates, time.Now())
		assert.False(t, ok)
	})
}

func TestNearestFutureDate_TodayIsTakenInTheRowsZone(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	// 00:30 on 5 June in London, still 4 June in UTC
	now := time.Date(2024, 6, 4, 23, 30, 0, 0, time.UTC)
	rows := []models.ScheduleRow{
		row(models.General, time.Date(2024, 6, 4, 0, 0, 0, 0, london)),
		row(models.General, time.Date(2024, 6, 5, 0, 0, 0, 0, london)),
		row(models.General, time.Date(2024, 6, 12, 0, 0, 0, 0, london)),
	}

	got, ok := NearestFutureDate(rows, models.General, now)
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2024, 6, 5, 0, 0, 0, 0, london)), "got %v", got)

	// 06:00 UTC during summer time is 07:00 London on the same day
	now = time.Date(2024, 6, 5, 6, 0, 0, 0, time.UTC)
	got, ok = NearestFutureDate(rows, models.General, now)
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2024, 6, 5, 0, 0, 0, 0, london)), "got %v", got)

	c, d, ok := NextUpcoming(Resolve(rows, now), now)
	require.True(t, ok)
	assert.Equal(t, models.General, c)
	assert.True(t, d.Equal(time.Date(2024, 6, 5, 0, 0, 0, 0, london)))
}
