package dto

// GenerateTravelResult reports the outcome of a deplacement rebuild.
type GenerateTravelResult struct {
	Scope            string `json:"scope"`
	Deleted          int64  `json:"deleted"`
	Created          int    `json:"created"`
	InterSiteCreated int    `json:"interSiteCreated"`
	Skipped          int    `json:"skipped"`
}

// ListTravelQuery paginates stored deplacements.
type ListTravelQuery struct {
	GroupID  string `form:"group_id" validate:"omitempty,uuid"`
	Date     string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=200"`
}
