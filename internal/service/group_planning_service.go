package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-planner-api/internal/dto"
	"github.com/noah-isme/campus-planner-api/internal/models"
	appErrors "github.com/noah-isme/campus-planner-api/pkg/errors"
)

const maxPlanningRangeDays = 366

type sessionDetailLister interface {
	ListDetailsByGroup(ctx context.Context, groupID string, from, to time.Time) ([]models.SessionDetail, error)
}

type deplacementDetailLister interface {
	ListDetailsByGroup(ctx context.Context, groupID string, from, to time.Time) ([]models.DeplacementDetail, error)
}

type planningCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// GroupPlanningService assembles the day-by-day planning of a group: its sessions
// interleaved with the deplacements between them.
type GroupPlanningService struct {
	groups       groupReader
	sites        siteReader
	sessions     sessionDetailLister
	deplacements deplacementDetailLister
	slots        *SlotCalculator
	cache        planningCache
	cacheTTL     time.Duration
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewGroupPlanningService constructs the planning view service. cache may be nil.
func NewGroupPlanningService(
	groups groupReader,
	sites siteReader,
	sessions sessionDetailLister,
	deplacements deplacementDetailLister,
	slots *SlotCalculator,
	cache planningCache,
	cacheTTL time.Duration,
	validate *validator.Validate,
	logger *zap.Logger,
) *GroupPlanningService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if slots == nil {
		slots = NewSlotCalculator(0, "")
	}
	return &GroupPlanningService{
		groups:       groups,
		sites:        sites,
		sessions:     sessions,
		deplacements: deplacements,
		slots:        slots,
		cache:        cache,
		cacheTTL:     cacheTTL,
		validator:    validate,
		logger:       logger,
	}
}

// GetGroupPlanning returns the planning of a group between two inclusive dates,
// expressed in the timezone of the group's main site.
func (s *GroupPlanningService) GetGroupPlanning(ctx context.Context, query dto.GroupPlanningQuery) (*dto.GroupPlanningResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid planning query")
	}

	key := planningCacheKey(query.GroupID, query.From, query.To)
	if s.cache != nil {
		var cached dto.GroupPlanningResponse
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			cached.Cached = true
			return &cached, nil
		}
	}

	group, err := s.groups.FindByID(ctx, query.GroupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	mainSite, err := s.sites.FindByID(ctx, group.MainSiteID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load main site")
	}
	loc := s.slots.Location(mainSite)

	from, err := time.ParseInLocation("2006-01-02", query.From, loc)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must be formatted as YYYY-MM-DD")
	}
	to, err := time.ParseInLocation("2006-01-02", query.To, loc)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must be formatted as YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if to.Sub(from) > maxPlanningRangeDays*24*time.Hour {
		return nil, appErrors.Clone(appErrors.ErrValidation, "planning range cannot exceed one year")
	}
	until := to.AddDate(0, 0, 1)

	sessions, err := s.sessions.ListDetailsByGroup(ctx, group.ID, from, until)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	deplacements, err := s.deplacements.ListDetailsByGroup(ctx, group.ID, from, until)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load deplacements")
	}

	entries := make([]dto.PlanningEntry, 0, len(sessions)+len(deplacements))
	for _, session := range sessions {
		entries = append(entries, sessionEntry(session, group.MainSiteID))
	}
	for _, d := range deplacements {
		entries = append(entries, deplacementEntry(d))
	}

	resp := &dto.GroupPlanningResponse{
		GroupID:   group.ID,
		GroupName: group.Name,
		From:      query.From,
		To:        query.To,
		Days:      groupByDay(entries, loc),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.cacheTTL); err != nil {
			s.logger.Warn("planning cache write failed", zap.String("group_id", group.ID), zap.Error(err))
		}
	}
	return resp, nil
}

func sessionEntry(session models.SessionDetail, mainSiteID string) dto.PlanningEntry {
	isMain := session.SiteID == mainSiteID
	color := dto.ColorOffSite
	if isMain {
		color = dto.ColorMainSite
	}
	return dto.PlanningEntry{
		Type:        dto.PlanningEntrySession,
		ID:          session.ID,
		StartTime:   session.StartAt,
		EndTime:     session.EndAt,
		Color:       color,
		CourseCode:  session.CourseCode,
		CourseTitle: session.CourseTitle,
		Site:        session.SiteName,
		Room:        session.RoomName,
		IsMainSite:  isMain,
	}
}

func deplacementEntry(d models.DeplacementDetail) dto.PlanningEntry {
	interSite := d.IsInterSite()
	color := dto.ColorSameSiteTravel
	if interSite {
		color = dto.ColorInterSite
	}
	return dto.PlanningEntry{
		Type:        dto.PlanningEntryDeplacement,
		ID:          d.ID,
		StartTime:   d.HeureDepart,
		EndTime:     d.HeureArrivee,
		Color:       color,
		Duration:    d.DureeTrajetMinutes,
		FromSite:    d.SiteDepartName,
		ToSite:      d.SiteArriveeName,
		FromRoom:    d.RoomDepartName,
		ToRoom:      d.RoomArriveeName,
		IsInterSite: interSite,
	}
}

// groupByDay sorts entries chronologically, sessions before the travel leaving them,
// and splits them by local date.
func groupByDay(entries []dto.PlanningEntry, loc *time.Location) []dto.PlanningDay {
	for i := range entries {
		entries[i].StartTime = entries[i].StartTime.In(loc)
		entries[i].EndTime = entries[i].EndTime.In(loc)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].StartTime.Equal(entries[j].StartTime) {
			return entries[i].StartTime.Before(entries[j].StartTime)
		}
		return entries[i].Type == dto.PlanningEntrySession && entries[j].Type != dto.PlanningEntrySession
	})

	days := []dto.PlanningDay{}
	for _, entry := range entries {
		date := entry.StartTime.Format("2006-01-02")
		if n := len(days); n == 0 || days[n-1].Date != date {
			days = append(days, dto.PlanningDay{Date: date})
		}
		days[len(days)-1].Entries = append(days[len(days)-1].Entries, entry)
	}
	return days
}
