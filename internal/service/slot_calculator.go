package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/campus-planner-api/internal/dto"
	"github.com/noah-isme/campus-planner-api/internal/models"
)

// SlotCalculator enumerates the bookable slots of a site over an academic year.
type SlotCalculator struct {
	duration    time.Duration
	fallbackLoc *time.Location
}

// NewSlotCalculator builds a calculator emitting slots of the given duration.
// Sites without a valid timezone fall back to defaultTimezone, then UTC.
func NewSlotCalculator(duration time.Duration, defaultTimezone string) *SlotCalculator {
	if duration <= 0 {
		duration = 60 * time.Minute
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil || defaultTimezone == "" {
		loc = time.UTC
	}
	return &SlotCalculator{duration: duration, fallbackLoc: loc}
}

// Duration returns the fixed slot length.
func (c *SlotCalculator) Duration() time.Duration {
	return c.duration
}

// Location resolves the site's timezone.
func (c *SlotCalculator) Location(site *models.Site) *time.Location {
	if site != nil && site.Timezone != "" {
		if loc, err := time.LoadLocation(site.Timezone); err == nil {
			return loc
		}
	}
	return c.fallbackLoc
}

// Slots walks every date of the year, keeps the site's active weekdays and cuts
// each day into consecutive slots from day_start. A trailing partial slot is dropped.
func (c *SlotCalculator) Slots(site *models.Site, year *models.AcademicYear) ([]dto.Slot, error) {
	if site == nil || year == nil {
		return nil, fmt.Errorf("site and academic year are required")
	}
	if len(site.ActiveDays) == 0 || site.DayStart == nil || site.DayEnd == nil {
		return nil, nil
	}
	open, err := parseClock(*site.DayStart)
	if err != nil {
		return nil, fmt.Errorf("site %s day_start: %w", site.ID, err)
	}
	closing, err := parseClock(*site.DayEnd)
	if err != nil {
		return nil, fmt.Errorf("site %s day_end: %w", site.ID, err)
	}
	if closing <= open {
		return nil, nil
	}

	loc := c.Location(site)
	first := civilDate(year.StartDate)
	last := civilDate(year.EndDate)

	var slots []dto.Slot
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if !site.IsOpenOn(day.Weekday()) {
			continue
		}
		dayEnd := atClock(day, closing, loc)
		for offset := open; ; offset += c.duration {
			start := atClock(day, offset, loc)
			end := start.Add(c.duration)
			if end.After(dayEnd) {
				break
			}
			slots = append(slots, dto.Slot{StartAt: start, EndAt: end})
		}
	}
	return slots, nil
}

// civilDate drops the clock part, keeping the calendar date as stored.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func atClock(day time.Time, offset time.Duration, loc *time.Location) time.Time {
	minutes := int(offset / time.Minute)
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, loc)
}

// parseClock reads HH:MM or HH:MM:SS into an offset from midnight.
func parseClock(raw string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 24 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	if hours == 24 && minutes != 0 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
}
