package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-planner-api/internal/models"
)

// CourseRepository reads courses and their group and equipment associations.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListByGroup returns the courses followed by a group.
func (r *CourseRepository) ListByGroup(ctx context.Context, groupID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.university_id, c.code, c.title, c.description, c.created_at, c.updated_at
FROM courses c
JOIN group_course gc ON gc.course_id = c.id
WHERE gc.group_id = $1
ORDER BY c.code ASC, c.id ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, groupID); err != nil {
		return nil, fmt.Errorf("list courses by group: %w", err)
	}
	return courses, nil
}

// ListRequiredEquipmentTypes returns the equipment type ids a course declares.
func (r *CourseRepository) ListRequiredEquipmentTypes(ctx context.Context, courseID string) ([]string, error) {
	const query = `SELECT type_id FROM course_required_equipment WHERE course_id = $1 ORDER BY type_id ASC`
	var typeIDs []string
	if err := r.db.SelectContext(ctx, &typeIDs, query, courseID); err != nil {
		return nil, fmt.Errorf("list required equipment types: %w", err)
	}
	return typeIDs, nil
}
