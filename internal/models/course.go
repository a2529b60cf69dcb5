package models

import "time"

// Course is a teachable unit; required equipment types are listed in course_required_equipment.
type Course struct {
	ID           string    `db:"id" json:"id"`
	UniversityID string    `db:"university_id" json:"university_id"`
	Code         string    `db:"code" json:"code"`
	Title        string    `db:"title" json:"title"`
	Description  *string   `db:"description" json:"description,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
