package models

import "time"

// Equipment is a unit attached to a site. Fixed units live in one room, mobile units are booked per session.
type Equipment struct {
	ID          string    `db:"id" json:"id"`
	SiteID      string    `db:"site_id" json:"site_id"`
	TypeID      string    `db:"type_id" json:"type_id"`
	IsMobile    bool      `db:"is_mobile" json:"is_mobile"`
	FixedRoomID *string   `db:"fixed_room_id" json:"fixed_room_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
