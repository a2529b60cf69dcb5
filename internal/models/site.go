package models

import (
	"time"

	"github.com/lib/pq"
)

// Weekday codes stored in sites.active_days.
const (
	DayMonday    = "MO"
	DayTuesday   = "TU"
	DayWednesday = "WE"
	DayThursday  = "TH"
	DayFriday    = "FR"
	DaySaturday  = "SA"
	DaySunday    = "SU"
)

// WeekdayCode maps a time.Weekday onto the two letter code used by sites.
func WeekdayCode(d time.Weekday) string {
	return [...]string{DaySunday, DayMonday, DayTuesday, DayWednesday, DayThursday, DayFriday, DaySaturday}[d]
}

// Site is a physical campus with its own operating window and weekday calendar.
type Site struct {
	ID           string         `db:"id" json:"id"`
	UniversityID string         `db:"university_id" json:"university_id"`
	Name         string         `db:"name" json:"name"`
	Timezone     string         `db:"timezone" json:"timezone"`
	DayStart     *string        `db:"day_start" json:"day_start,omitempty"`
	DayEnd       *string        `db:"day_end" json:"day_end,omitempty"`
	ActiveDays   pq.StringArray `db:"active_days" json:"active_days"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// IsOpenOn reports whether the weekday belongs to the site's active days.
func (s *Site) IsOpenOn(d time.Weekday) bool {
	code := WeekdayCode(d)
	for _, day := range s.ActiveDays {
		if day == code {
			return true
		}
	}
	return false
}

// HasOperatingHours reports whether the site can host sessions at all.
func (s *Site) HasOperatingHours() bool {
	return len(s.ActiveDays) > 0 && s.DayStart != nil && s.DayEnd != nil && *s.DayStart != "" && *s.DayEnd != ""
}
