package models

import "time"

// CourseSession is one booked occurrence of a course in a room.
type CourseSession struct {
	ID             string    `db:"id" json:"id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	CourseID       string    `db:"course_id" json:"course_id"`
	SiteID         string    `db:"site_id" json:"site_id"`
	RoomID         string    `db:"room_id" json:"room_id"`
	StartAt        time.Time `db:"start_at" json:"start_at"`
	EndAt          time.Time `db:"end_at" json:"end_at"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// GroupSession is a session joined with one of its attending groups. A session
// attended by several groups yields one row per group.
type GroupSession struct {
	CourseSession
	GroupID string `db:"group_id" json:"group_id"`
}

// SessionDetail carries display names for planning views and exports.
type SessionDetail struct {
	GroupSession
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseTitle string `db:"course_title" json:"course_title"`
	SiteName    string `db:"site_name" json:"site_name"`
	RoomName    string `db:"room_name" json:"room_name"`
	Timezone    string `db:"timezone" json:"timezone"`
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	AcademicYearID string
	GroupID        string
	From           *time.Time
	To             *time.Time
}
