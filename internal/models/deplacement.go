package models

import "time"

// Deplacement is a derived travel edge between two consecutive sessions of one group.
type Deplacement struct {
	ID                 string    `db:"id" json:"id"`
	SessionDepartID    string    `db:"session_depart_id" json:"session_depart_id"`
	SiteDepartID       string    `db:"site_depart_id" json:"site_depart_id"`
	RoomDepartID       string    `db:"room_depart_id" json:"room_depart_id"`
	SessionArriveeID   string    `db:"session_arrivee_id" json:"session_arrivee_id"`
	SiteArriveeID      string    `db:"site_arrivee_id" json:"site_arrivee_id"`
	RoomArriveeID      string    `db:"room_arrivee_id" json:"room_arrivee_id"`
	GroupID            string    `db:"group_id" json:"group_id"`
	HeureDepart        time.Time `db:"heure_depart" json:"heure_depart"`
	HeureArrivee       time.Time `db:"heure_arrivee" json:"heure_arrivee"`
	DureeTrajetMinutes int       `db:"duree_trajet_minutes" json:"duree_trajet_minutes"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// IsInterSite reports whether departure and arrival are on different sites.
func (d *Deplacement) IsInterSite() bool {
	return d.SiteDepartID != d.SiteArriveeID
}

// DeplacementFilter narrows travel listings.
type DeplacementFilter struct {
	GroupID  string
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// DeplacementStats summarises stored travel records.
type DeplacementStats struct {
	Total     int `db:"total" json:"total"`
	InterSite int `db:"inter_site" json:"inter_site"`
	Today     int `db:"today" json:"today"`
}

// DeplacementDetail carries site and room names for planning views.
type DeplacementDetail struct {
	Deplacement
	SiteDepartName  string `db:"site_depart_name" json:"site_depart_name"`
	SiteArriveeName string `db:"site_arrivee_name" json:"site_arrivee_name"`
	RoomDepartName  string `db:"room_depart_name" json:"room_depart_name"`
	RoomArriveeName string `db:"room_arrivee_name" json:"room_arrivee_name"`
}
