package models

import "time"

// Group is a cohort of students attending the same courses within an academic year.
type Group struct {
	ID             string    `db:"id" json:"id"`
	UniversityID   string    `db:"university_id" json:"university_id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	Name           string    `db:"name" json:"name"`
	Quantity       int       `db:"quantity" json:"quantity"`
	MainSiteID     string    `db:"main_site_id" json:"main_site_id"`
	MinSize        int       `db:"min_size" json:"min_size"`
	MaxSize        int       `db:"max_size" json:"max_size"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
