package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-planner-api/internal/dto"
	"github.com/noah-isme/campus-planner-api/internal/models"
	"github.com/noah-isme/campus-planner-api/pkg/config"
	appErrors "github.com/noah-isme/campus-planner-api/pkg/errors"
	"github.com/noah-isme/campus-planner-api/pkg/jobs"
	"github.com/noah-isme/campus-planner-api/pkg/lock"
)

const (
	travelScopeAll  = "all"
	travelScopeYear = "academic_year"

	// TravelJobType identifies queued deplacement rebuilds.
	TravelJobType = "travel.rebuild"

	travelLockKey = "travel"
)

type groupSessionLister interface {
	ListGroupSessions(ctx context.Context, academicYearID string) ([]models.GroupSession, error)
}

// DeplacementStore persists derived travel records.
type DeplacementStore interface {
	DeleteAll(ctx context.Context, exec sqlx.ExtContext) (int64, error)
	DeleteByAcademicYear(ctx context.Context, exec sqlx.ExtContext, academicYearID string) (int64, error)
	Create(ctx context.Context, exec sqlx.ExtContext, d *models.Deplacement) (bool, error)
	List(ctx context.Context, filter models.DeplacementFilter) ([]models.Deplacement, int, error)
	Stats(ctx context.Context, dayStart, dayEnd time.Time) (*models.DeplacementStats, error)
}

type travelRecorder interface {
	ObserveTravelRebuild(scope, outcome string, sameSite, interSite int)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// TravelService derives deplacements between consecutive sessions of each group.
type TravelService struct {
	sessions  groupSessionLister
	store     DeplacementStore
	sites     siteReader
	tx        txProvider
	locker    lock.Locker
	slots     *SlotCalculator
	cfg       config.PlanningConfig
	lockTTL   time.Duration
	metrics   travelRecorder
	cache     planningCacheInvalidator
	queue     jobEnqueuer
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// TravelServiceDeps groups the collaborators of the travel service.
type TravelServiceDeps struct {
	Sessions  groupSessionLister
	Store     DeplacementStore
	Sites     siteReader
	Tx        txProvider
	Locker    lock.Locker
	Slots     *SlotCalculator
	Metrics   travelRecorder
	Cache     planningCacheInvalidator
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewTravelService constructs the deplacement generator.
func NewTravelService(deps TravelServiceDeps, cfg config.PlanningConfig) *TravelService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewMemoryLocker()
	}
	if deps.Metrics == nil {
		deps.Metrics = (*MetricsService)(nil)
	}
	if deps.Slots == nil {
		deps.Slots = NewSlotCalculator(cfg.CourseDuration, cfg.DefaultTimezone)
	}
	if cfg.SameSiteTravel <= 0 {
		cfg.SameSiteTravel = 5 * time.Minute
	}
	if cfg.InterSiteTravel <= 0 {
		cfg.InterSiteTravel = 60 * time.Minute
	}
	ttl := cfg.MaxExecutionTime
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TravelService{
		sessions:  deps.Sessions,
		store:     deps.Store,
		sites:     deps.Sites,
		tx:        deps.Tx,
		locker:    deps.Locker,
		slots:     deps.Slots,
		cfg:       cfg,
		lockTTL:   ttl,
		metrics:   deps.Metrics,
		cache:     deps.Cache,
		validator: deps.Validator,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// UseQueue routes ScheduleRebuild through a background queue. Without a queue
// rebuilds run inline.
func (s *TravelService) UseQueue(q jobEnqueuer) {
	s.queue = q
}

// TravelMinutes returns the travel time between two sites.
func (s *TravelService) TravelMinutes(fromSiteID, toSiteID string) int {
	if fromSiteID == toSiteID {
		return int(s.cfg.SameSiteTravel / time.Minute)
	}
	return int(s.cfg.InterSiteTravel / time.Minute)
}

// GenerateAllTravel rebuilds every deplacement from the stored sessions.
func (s *TravelService) GenerateAllTravel(ctx context.Context) (*dto.GenerateTravelResult, error) {
	return s.rebuild(ctx, "")
}

// GenerateTravelForAcademicYear rebuilds only the deplacements between sessions of one year.
func (s *TravelService) GenerateTravelForAcademicYear(ctx context.Context, academicYearID string) (*dto.GenerateTravelResult, error) {
	if err := s.validator.Var(academicYearID, "required,uuid"); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year id")
	}
	return s.rebuild(ctx, academicYearID)
}

// ScheduleRebuild queues a rebuild for the year, or runs it inline when no queue is attached.
func (s *TravelService) ScheduleRebuild(academicYearID string) error {
	if s.queue == nil {
		_, err := s.rebuild(context.Background(), academicYearID)
		return err
	}
	return s.queue.Enqueue(jobs.Job{
		ID:             uuid.NewString(),
		Kind:           TravelJobType,
		AcademicYearID: academicYearID,
	})
}

// HandleJob is the queue handler for TravelJobType jobs. Each job rebuilds a single year.
func (s *TravelService) HandleJob(ctx context.Context, job jobs.Job) error {
	if job.Kind != TravelJobType {
		return jobs.Permanent(fmt.Errorf("unsupported job kind %q", job.Kind))
	}
	if job.AcademicYearID == "" {
		return jobs.Permanent(fmt.Errorf("travel job %s has no academic year", job.ID))
	}
	_, err := s.rebuild(ctx, job.AcademicYearID)
	return err
}

// RebuildAll is the cron entry point.
func (s *TravelService) RebuildAll(ctx context.Context) error {
	_, err := s.GenerateAllTravel(ctx)
	return err
}

func (s *TravelService) rebuild(ctx context.Context, academicYearID string) (*dto.GenerateTravelResult, error) {
	scope := travelScopeAll
	if academicYearID != "" {
		scope = travelScopeYear
	}
	log := s.logger.With(zap.String("scope", scope), zap.String("academic_year_id", academicYearID))

	release, err := s.locker.Acquire(ctx, travelLockKey, s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, appErrors.Clone(appErrors.ErrGenerationInProgress, "travel generation already running")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire travel lock")
	}
	defer func() {
		if relErr := release(context.Background()); relErr != nil {
			log.Warn("release travel lock", zap.Error(relErr))
		}
	}()

	sessions, err := s.sessions.ListGroupSessions(ctx, academicYearID)
	if err != nil {
		s.metrics.ObserveTravelRebuild(scope, outcomeFailed, 0, 0)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sessions")
	}
	edges, err := s.deriveDeplacements(ctx, sessions)
	if err != nil {
		s.metrics.ObserveTravelRebuild(scope, outcomeFailed, 0, 0)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to derive deplacements")
	}

	result, err := s.persist(ctx, academicYearID, edges)
	if err != nil {
		s.metrics.ObserveTravelRebuild(scope, outcomeFailed, 0, 0)
		log.Error("travel rebuild failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store deplacements")
	}
	result.Scope = scope

	s.metrics.ObserveTravelRebuild(scope, outcomeSuccess, result.Created-result.InterSiteCreated, result.InterSiteCreated)
	if s.cache != nil {
		if err := s.cache.InvalidatePlanning(ctx); err != nil {
			log.Warn("planning cache invalidation failed", zap.Error(err))
		}
	}
	log.Info("travel rebuild finished",
		zap.Int64("deleted", result.Deleted),
		zap.Int("created", result.Created),
		zap.Int("inter_site", result.InterSiteCreated),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// deriveDeplacements buckets sessions by group and local date, orders each bucket by
// start and emits one edge per consecutive pair.
func (s *TravelService) deriveDeplacements(ctx context.Context, sessions []models.GroupSession) ([]models.Deplacement, error) {
	type bucketKey struct {
		groupID string
		date    string
	}
	buckets := make(map[bucketKey][]models.GroupSession)
	var order []bucketKey
	locations := make(map[string]*time.Location)

	for _, session := range sessions {
		loc, ok := locations[session.SiteID]
		if !ok {
			site, err := s.sites.FindByID(ctx, session.SiteID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("load site %s: %w", session.SiteID, err)
			}
			loc = s.slots.Location(site)
			locations[session.SiteID] = loc
		}
		key := bucketKey{groupID: session.GroupID, date: session.StartAt.In(loc).Format("2006-01-02")}
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], session)
	}

	var edges []models.Deplacement
	for _, key := range order {
		day := buckets[key]
		sort.SliceStable(day, func(i, j int) bool {
			if day[i].StartAt.Equal(day[j].StartAt) {
				return day[i].ID < day[j].ID
			}
			return day[i].StartAt.Before(day[j].StartAt)
		})
		for i := 0; i+1 < len(day); i++ {
			edges = append(edges, s.buildDeplacement(key.groupID, &day[i], &day[i+1]))
		}
	}
	return edges, nil
}

// buildDeplacement links two consecutive sessions. Same-site travel arrives at the
// next session's start; inter-site travel arrives a fixed delay after departure.
func (s *TravelService) buildDeplacement(groupID string, from, to *models.GroupSession) models.Deplacement {
	minutes := s.TravelMinutes(from.SiteID, to.SiteID)
	arrival := to.StartAt
	if from.SiteID != to.SiteID {
		arrival = from.EndAt.Add(time.Duration(minutes) * time.Minute)
	}
	return models.Deplacement{
		SessionDepartID:    from.ID,
		SiteDepartID:       from.SiteID,
		RoomDepartID:       from.RoomID,
		SessionArriveeID:   to.ID,
		SiteArriveeID:      to.SiteID,
		RoomArriveeID:      to.RoomID,
		GroupID:            groupID,
		HeureDepart:        from.EndAt,
		HeureArrivee:       arrival,
		DureeTrajetMinutes: minutes,
	}
}

func (s *TravelService) persist(ctx context.Context, academicYearID string, edges []models.Deplacement) (*dto.GenerateTravelResult, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin travel transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	result := &dto.GenerateTravelResult{}
	if academicYearID == "" {
		result.Deleted, err = s.store.DeleteAll(ctx, tx)
	} else {
		result.Deleted, err = s.store.DeleteByAcademicYear(ctx, tx, academicYearID)
	}
	if err != nil {
		return nil, err
	}

	for i := range edges {
		inserted, err := s.store.Create(ctx, tx, &edges[i])
		if err != nil {
			return nil, err
		}
		if !inserted {
			result.Skipped++
			continue
		}
		result.Created++
		if edges[i].IsInterSite() {
			result.InterSiteCreated++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit deplacements: %w", err)
	}
	committed = true
	return result, nil
}

// ListTravel returns a page of stored deplacements.
func (s *TravelService) ListTravel(ctx context.Context, query dto.ListTravelQuery) ([]models.Deplacement, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid travel query")
	}
	filter := models.DeplacementFilter{GroupID: query.GroupID, Page: query.Page, PageSize: query.PageSize}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if query.Date != "" {
		loc := s.slots.Location(nil)
		day, err := time.ParseInLocation("2006-01-02", query.Date, loc)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
		}
		next := day.AddDate(0, 0, 1)
		filter.From, filter.To = &day, &next
	}

	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list deplacements")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// TravelStats counts stored deplacements; "today" follows the default timezone.
func (s *TravelService) TravelStats(ctx context.Context) (*models.DeplacementStats, error) {
	loc := s.slots.Location(nil)
	now := s.now().In(loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	stats, err := s.store.Stats(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load travel stats")
	}
	return stats, nil
}
