package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-planner-api/internal/models"
)

// EquipmentBooking is one reservation of an equipment unit by a session.
type EquipmentBooking struct {
	EquipmentID string    `db:"equipment_id"`
	SessionID   string    `db:"session_id"`
	StartAt     time.Time `db:"start_at"`
	EndAt       time.Time `db:"end_at"`
}

// EquipmentRepository reads equipment units and their session bookings.
type EquipmentRepository struct {
	db *sqlx.DB
}

// NewEquipmentRepository constructs an equipment repository.
func NewEquipmentRepository(db *sqlx.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// ListMobileByType returns the mobile units of the given types located on a site.
func (r *EquipmentRepository) ListMobileByType(ctx context.Context, siteID string, typeIDs []string) ([]models.Equipment, error) {
	if len(typeIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, site_id, type_id, is_mobile, fixed_room_id, created_at, updated_at
FROM equipment WHERE site_id = ? AND is_mobile = TRUE AND type_id IN (?) ORDER BY type_id ASC, id ASC`, siteID, typeIDs)
	if err != nil {
		return nil, fmt.Errorf("build mobile equipment query: %w", err)
	}
	var units []models.Equipment
	if err := r.db.SelectContext(ctx, &units, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list mobile equipment: %w", err)
	}
	return units, nil
}

// ListBookings returns bookings of the units touching [from, to], boundaries included.
func (r *EquipmentRepository) ListBookings(ctx context.Context, equipmentIDs []string, from, to time.Time) ([]EquipmentBooking, error) {
	if len(equipmentIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT se.equipment_id, se.session_id, cs.start_at, cs.end_at
FROM session_equipment se
JOIN course_sessions cs ON cs.id = se.session_id
WHERE se.equipment_id IN (?) AND cs.start_at <= ? AND cs.end_at >= ?
ORDER BY cs.start_at ASC`, equipmentIDs, to, from)
	if err != nil {
		return nil, fmt.Errorf("build equipment bookings query: %w", err)
	}
	var bookings []EquipmentBooking
	if err := r.db.SelectContext(ctx, &bookings, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list equipment bookings: %w", err)
	}
	return bookings, nil
}
