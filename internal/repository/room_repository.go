package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-planner-api/internal/models"
)

// RoomRepository reads rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs a room repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// FindByID loads a room by id.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	const query = `SELECT id, site_id, name, capacity, description, created_at, updated_at FROM rooms WHERE id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// FindSmallestFitting returns the room with the lowest capacity still holding minCapacity.
// Ties on capacity resolve to the lowest id. sql.ErrNoRows means no room is large enough.
func (r *RoomRepository) FindSmallestFitting(ctx context.Context, siteID string, minCapacity int) (*models.Room, error) {
	const query = `SELECT id, site_id, name, capacity, description, created_at, updated_at
FROM rooms WHERE site_id = $1 AND capacity >= $2 ORDER BY capacity ASC, id ASC LIMIT 1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, siteID, minCapacity); err != nil {
		return nil, err
	}
	return &room, nil
}
