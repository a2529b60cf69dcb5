package models

import "time"

// Room belongs to a single site and is referenced, never mutated, by the scheduler.
type Room struct {
	ID          string    `db:"id" json:"id"`
	SiteID      string    `db:"site_id" json:"site_id"`
	Name        string    `db:"name" json:"name"`
	Capacity    int       `db:"capacity" json:"capacity"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
