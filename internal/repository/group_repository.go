package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-planner-api/internal/models"
)

const groupColumns = `id, university_id, academic_year_id, name, quantity, main_site_id, min_size, max_size, created_at, updated_at`

// GroupRepository reads student groups.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a group repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// FindByID loads a group by id.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE id = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// ListByAcademicYear returns every group of the academic year.
func (r *GroupRepository) ListByAcademicYear(ctx context.Context, academicYearID string) ([]models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM groups WHERE academic_year_id = $1 ORDER BY name ASC, id ASC`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, academicYearID); err != nil {
		return nil, fmt.Errorf("list groups by academic year: %w", err)
	}
	return groups, nil
}
