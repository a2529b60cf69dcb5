package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-planner-api/internal/models"
)

const siteColumns = `id, university_id, name, timezone,
to_char(day_start, 'HH24:MI') AS day_start, to_char(day_end, 'HH24:MI') AS day_end,
active_days, created_at, updated_at`

// SiteRepository reads campus sites.
type SiteRepository struct {
	db *sqlx.DB
}

// NewSiteRepository constructs a site repository.
func NewSiteRepository(db *sqlx.DB) *SiteRepository {
	return &SiteRepository{db: db}
}

// FindByID loads a site by id.
func (r *SiteRepository) FindByID(ctx context.Context, id string) (*models.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE id = $1`
	var site models.Site
	if err := r.db.GetContext(ctx, &site, query, id); err != nil {
		return nil, err
	}
	return &site, nil
}

// ListSiblings returns the other sites of a university ordered by name.
func (r *SiteRepository) ListSiblings(ctx context.Context, universityID, excludeSiteID string) ([]models.Site, error) {
	query := `SELECT ` + siteColumns + ` FROM sites WHERE university_id = $1 AND id <> $2 ORDER BY name ASC, id ASC`
	var sites []models.Site
	if err := r.db.SelectContext(ctx, &sites, query, universityID, excludeSiteID); err != nil {
		return nil, fmt.Errorf("list sibling sites: %w", err)
	}
	return sites, nil
}
