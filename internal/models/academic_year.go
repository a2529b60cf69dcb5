package models

import "time"

// AcademicYearState is the lifecycle of an academic year.
type AcademicYearState string

const (
	AcademicYearPlanned  AcademicYearState = "planned"
	AcademicYearActive   AcademicYearState = "active"
	AcademicYearArchived AcademicYearState = "archived"
)

// AcademicYear bounds the date range over which sessions are generated.
type AcademicYear struct {
	ID           string            `db:"id" json:"id"`
	UniversityID string            `db:"university_id" json:"university_id"`
	Name         string            `db:"name" json:"name"`
	StartDate    time.Time         `db:"start_date" json:"start_date"`
	EndDate      time.Time         `db:"end_date" json:"end_date"`
	State        AcademicYearState `db:"state" json:"state"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}
