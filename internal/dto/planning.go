package dto

import "time"

// GenerateScheduleRequest identifies the academic year to schedule.
type GenerateScheduleRequest struct {
	AcademicYearID string `json:"academicYearId" validate:"required,uuid"`
}

// GenerateScheduleResult summarises a generation run. Pairing failures are
// listed in Errors and do not flip Success.
type GenerateScheduleResult struct {
	Success         bool          `json:"success"`
	Message         string        `json:"message,omitempty"`
	AcademicYearID  string        `json:"academicYearId"`
	SessionsCreated int           `json:"sessionsCreated"`
	SlotsSkipped    int           `json:"slotsSkipped"`
	Errors          []string      `json:"errors"`
	Duration        time.Duration `json:"-"`
	TravelQueued    bool          `json:"travelQueued"`
}

// Slot is a bookable interval produced from a site's operating window.
type Slot struct {
	StartAt time.Time `json:"startAt"`
	EndAt   time.Time `json:"endAt"`
}

// GroupPlanningQuery bounds a planning view. Dates are inclusive, formatted YYYY-MM-DD.
type GroupPlanningQuery struct {
	GroupID string `validate:"required,uuid"`
	From    string `form:"from" validate:"required,datetime=2006-01-02"`
	To      string `form:"to" validate:"required,datetime=2006-01-02"`
}

// Planning entry kinds.
const (
	PlanningEntrySession     = "session"
	PlanningEntryDeplacement = "deplacement"
)

// Planning entry colours.
const (
	ColorMainSite       = "green"
	ColorOffSite        = "purple"
	ColorSameSiteTravel = "blue"
	ColorInterSite      = "orange"
)

// PlanningEntry is either a session or the travel leading to the next session.
type PlanningEntry struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Color     string    `json:"color"`

	CourseCode  string `json:"courseCode,omitempty"`
	CourseTitle string `json:"courseTitle,omitempty"`
	Site        string `json:"site,omitempty"`
	Room        string `json:"room,omitempty"`
	IsMainSite  bool   `json:"isMainSite,omitempty"`

	Duration    int    `json:"duration,omitempty"`
	FromSite    string `json:"fromSite,omitempty"`
	ToSite      string `json:"toSite,omitempty"`
	FromRoom    string `json:"fromRoom,omitempty"`
	ToRoom      string `json:"toRoom,omitempty"`
	IsInterSite bool   `json:"isInterSite,omitempty"`
}

// PlanningDay groups the entries of one calendar date.
type PlanningDay struct {
	Date    string          `json:"date"`
	Entries []PlanningEntry `json:"entries"`
}

// GroupPlanningResponse is the day-by-day planning of a group.
type GroupPlanningResponse struct {
	GroupID   string        `json:"groupId"`
	GroupName string        `json:"groupName"`
	From      string        `json:"from"`
	To        string        `json:"to"`
	Days      []PlanningDay `json:"days"`
	Cached    bool          `json:"-"`
}
