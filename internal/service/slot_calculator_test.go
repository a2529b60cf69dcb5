package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-planner-api/internal/models"
)

func TestSlotsMondayWindowYieldsTwoHourSlots(t *testing.T) {
	calc := NewSlotCalculator(time.Hour, "UTC")
	site := testSite(testSiteA, "08:00", "10:00", models.DayMonday)

	slots, err := calc.Slots(&site, mondayYear())
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC), slots[0].StartAt)
	assert.Equal(t, time.Date(2024, 9, 2, 9, 0, 0, 0, time.UTC), slots[1].StartAt)
	assert.Equal(t, time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC), slots[1].EndAt)
}

func TestSlotsKeepOnlyActiveWeekdaysAndFixedDuration(t *testing.T) {
	calc := NewSlotCalculator(90*time.Minute, "UTC")
	site := testSite(testSiteA, "08:00:00", "12:00:00", models.DayTuesday, models.DayThursday)
	year := mondayYear()
	year.EndDate = time.Date(2024, 9, 8, 0, 0, 0, 0, time.UTC)

	slots, err := calc.Slots(&site, year)
	require.NoError(t, err)
	// 08:00, 09:30 fit; 11:00-12:30 overflows and is dropped.
	require.Len(t, slots, 4)
	for _, slot := range slots {
		assert.Equal(t, 90*time.Minute, slot.EndAt.Sub(slot.StartAt))
		wd := slot.StartAt.Weekday()
		assert.True(t, wd == time.Tuesday || wd == time.Thursday, "unexpected weekday %s", wd)
	}
}

func TestSlotsUseSiteTimezone(t *testing.T) {
	calc := NewSlotCalculator(time.Hour, "UTC")
	site := testSite(testSiteA, "08:00", "09:00", models.DayMonday)
	site.Timezone = "Europe/Brussels"

	slots, err := calc.Slots(&site, mondayYear())
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, 8, slots[0].StartAt.Hour())
	assert.Equal(t, time.Date(2024, 9, 2, 6, 0, 0, 0, time.UTC), slots[0].StartAt.UTC())
}

func TestSlotsEmptyWithoutOperatingHours(t *testing.T) {
	calc := NewSlotCalculator(time.Hour, "UTC")
	site := testSite(testSiteA, "08:00", "10:00")

	slots, err := calc.Slots(&site, mondayYear())
	require.NoError(t, err)
	assert.Empty(t, slots)

	site = testSite(testSiteA, "10:00", "08:00", models.DayMonday)
	slots, err = calc.Slots(&site, mondayYear())
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestSlotsRejectMalformedHours(t *testing.T) {
	calc := NewSlotCalculator(time.Hour, "UTC")
	site := testSite(testSiteA, "8h", "10:00", models.DayMonday)

	_, err := calc.Slots(&site, mondayYear())
	assert.Error(t, err)
}
