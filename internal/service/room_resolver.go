package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-planner-api/internal/models"
)

var errNoRoomAvailable = errors.New("no room with enough capacity")

type roomFinder interface {
	FindSmallestFitting(ctx context.Context, siteID string, minCapacity int) (*models.Room, error)
}

type siblingSiteLister interface {
	ListSiblings(ctx context.Context, universityID, excludeSiteID string) ([]models.Site, error)
}

// RoomResolution is the room picked for a pairing and the site hosting it.
type RoomResolution struct {
	Room     *models.Room
	Site     *models.Site
	Fallback bool
}

// RoomResolver picks the tightest room on a preferred site, then on sibling sites.
// Capacity is the only criterion; collisions are checked when booking.
type RoomResolver struct {
	rooms  roomFinder
	sites  siblingSiteLister
	logger *zap.Logger
}

// NewRoomResolver constructs a resolver.
func NewRoomResolver(rooms roomFinder, sites siblingSiteLister, logger *zap.Logger) *RoomResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomResolver{rooms: rooms, sites: sites, logger: logger}
}

// Resolve returns errNoRoomAvailable when no site of the university has a room for capacity.
func (r *RoomResolver) Resolve(ctx context.Context, preferred *models.Site, capacity int) (*RoomResolution, error) {
	room, err := r.smallestOn(ctx, preferred.ID, capacity)
	if err != nil {
		return nil, err
	}
	if room != nil {
		return &RoomResolution{Room: room, Site: preferred}, nil
	}

	siblings, err := r.sites.ListSiblings(ctx, preferred.UniversityID, preferred.ID)
	if err != nil {
		return nil, err
	}
	for i := range siblings {
		site := siblings[i]
		room, err := r.smallestOn(ctx, site.ID, capacity)
		if err != nil {
			return nil, err
		}
		if room != nil {
			r.logger.Info("fallback room selected",
				zap.String("preferred_site_id", preferred.ID),
				zap.String("site_id", site.ID),
				zap.String("room_id", room.ID),
				zap.Int("capacity", room.Capacity),
			)
			return &RoomResolution{Room: room, Site: &site, Fallback: true}, nil
		}
	}
	return nil, errNoRoomAvailable
}

func (r *RoomResolver) smallestOn(ctx context.Context, siteID string, capacity int) (*models.Room, error) {
	room, err := r.rooms.FindSmallestFitting(ctx, siteID, capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find room on site %s: %w", siteID, err)
	}
	return room, nil
}
