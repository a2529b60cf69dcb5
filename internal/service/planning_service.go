package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-planner-api/internal/dto"
	"github.com/noah-isme/campus-planner-api/internal/models"
	"github.com/noah-isme/campus-planner-api/internal/repository"
	"github.com/noah-isme/campus-planner-api/pkg/config"
	appErrors "github.com/noah-isme/campus-planner-api/pkg/errors"
	"github.com/noah-isme/campus-planner-api/pkg/lock"
)

const (
	outcomeSuccess = "success"
	outcomeFailed  = "failed"
	outcomeEmpty   = "empty"
)

type academicYearReader interface {
	FindByID(ctx context.Context, id string) (*models.AcademicYear, error)
}

type planningGroupReader interface {
	ListByAcademicYear(ctx context.Context, academicYearID string) ([]models.Group, error)
}

type planningCourseReader interface {
	ListByGroup(ctx context.Context, groupID string) ([]models.Course, error)
	ListRequiredEquipmentTypes(ctx context.Context, courseID string) ([]string, error)
}

type siteReader interface {
	FindByID(ctx context.Context, id string) (*models.Site, error)
}

type sessionWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, session *models.CourseSession) error
	AttachGroups(ctx context.Context, exec sqlx.ExtContext, sessionID string, groupIDs []string) error
	AttachEquipment(ctx context.Context, exec sqlx.ExtContext, sessionID string, equipmentIDs []string) error
	ListByRoomInRange(ctx context.Context, roomID string, from, to time.Time) ([]models.CourseSession, error)
}

type equipmentReader interface {
	ListMobileByType(ctx context.Context, siteID string, typeIDs []string) ([]models.Equipment, error)
	ListBookings(ctx context.Context, equipmentIDs []string, from, to time.Time) ([]repository.EquipmentBooking, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type generationRecorder interface {
	ObserveGeneration(outcome string, duration time.Duration, sessions, pairingErrors, skipped int)
}

type planningCacheInvalidator interface {
	InvalidatePlanning(ctx context.Context) error
}

type travelRebuildScheduler interface {
	ScheduleRebuild(academicYearID string) error
}

// PlanningService materialises course sessions for every group/course pairing of an academic year.
type PlanningService struct {
	years     academicYearReader
	groups    planningGroupReader
	courses   planningCourseReader
	sites     siteReader
	resolver  *RoomResolver
	slots     *SlotCalculator
	sessions  sessionWriter
	equipment equipmentReader
	tx        txProvider
	locker    lock.Locker
	cfg       config.PlanningConfig
	metrics   generationRecorder
	cache     planningCacheInvalidator
	travel    travelRebuildScheduler
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// PlanningServiceDeps groups the collaborators of the planning service.
type PlanningServiceDeps struct {
	Years     academicYearReader
	Groups    planningGroupReader
	Courses   planningCourseReader
	Sites     siteReader
	Resolver  *RoomResolver
	Slots     *SlotCalculator
	Sessions  sessionWriter
	Equipment equipmentReader
	Tx        txProvider
	Locker    lock.Locker
	Metrics   generationRecorder
	Cache     planningCacheInvalidator
	Travel    travelRebuildScheduler
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewPlanningService wires the schedule generator.
func NewPlanningService(deps PlanningServiceDeps, cfg config.PlanningConfig) *PlanningService {
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
	return &PlanningService{
		years:     deps.Years,
		groups:    deps.Groups,
		courses:   deps.Courses,
		sites:     deps.Sites,
		resolver:  deps.Resolver,
		slots:     deps.Slots,
		sessions:  deps.Sessions,
		equipment: deps.Equipment,
		tx:        deps.Tx,
		locker:    deps.Locker,
		cfg:       cfg,
		metrics:   deps.Metrics,
		cache:     deps.Cache,
		travel:    deps.Travel,
		validator: deps.Validator,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// GenerateSchedule books sessions for every (group, course) pairing of the academic year.
// Pairing failures are collected in the result. A data-access fault stops the run and
// is returned together with the partial result.
func (s *PlanningService) GenerateSchedule(ctx context.Context, academicYearID string) (*dto.GenerateScheduleResult, error) {
	if err := s.validator.Struct(dto.GenerateScheduleRequest{AcademicYearID: academicYearID}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid academic year id")
	}

	year, err := s.years.FindByID(ctx, academicYearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	if year.State != models.AcademicYearActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("academic year %s is %s, only active years can be scheduled", year.Name, year.State))
	}

	release, err := s.locker.Acquire(ctx, "generate:"+year.ID, s.cfg.MaxExecutionTime)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, appErrors.Clone(appErrors.ErrGenerationInProgress, fmt.Sprintf("schedule generation already running for %s", year.Name))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire generation lock")
	}
	defer func() {
		if relErr := release(context.Background()); relErr != nil {
			s.logger.Warn("release generation lock", zap.String("academic_year_id", year.ID), zap.Error(relErr))
		}
	}()

	started := s.now()
	result := &dto.GenerateScheduleResult{AcademicYearID: year.ID, Errors: []string{}}
	log := s.logger.With(zap.String("academic_year_id", year.ID), zap.String("academic_year", year.Name))
	log.Info("schedule generation started", zap.String("university_id", year.UniversityID))

	// Session writes exclude travel rebuilds, which read the whole session set.
	releaseTravel, err := s.locker.Acquire(ctx, travelLockKey, s.cfg.MaxExecutionTime)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, appErrors.Clone(appErrors.ErrGenerationInProgress, "travel rebuild running, retry once it has finished")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire travel lock")
	}
	runErr := s.run(ctx, year, result, log)
	if relErr := releaseTravel(context.Background()); relErr != nil {
		log.Warn("release travel lock", zap.Error(relErr))
	}
	result.Duration = s.now().Sub(started)

	switch {
	case runErr != nil:
		result.Success = false
		result.Message = "generation failed: " + runErr.Error()
		s.metrics.ObserveGeneration(outcomeFailed, result.Duration, result.SessionsCreated, len(result.Errors), result.SlotsSkipped)
		log.Error("schedule generation failed", zap.Int("sessions_created", result.SessionsCreated), zap.Error(runErr))
		s.afterRun(ctx, year.ID, result, log)
		var appErr *appErrors.Error
		if errors.As(runErr, &appErr) {
			return result, appErr
		}
		return result, appErrors.Wrap(runErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "schedule generation failed")
	case !result.Success:
		s.metrics.ObserveGeneration(outcomeEmpty, result.Duration, 0, 0, 0)
		return result, appErrors.Clone(appErrors.ErrPreconditionFailed, result.Message)
	}

	s.metrics.ObserveGeneration(outcomeSuccess, result.Duration, result.SessionsCreated, len(result.Errors), result.SlotsSkipped)
	log.Info("schedule generation finished",
		zap.Int("sessions_created", result.SessionsCreated),
		zap.Int("slots_skipped", result.SlotsSkipped),
		zap.Int("pairing_errors", len(result.Errors)),
		zap.Duration("took", result.Duration),
	)
	s.afterRun(ctx, year.ID, result, log)
	return result, nil
}

func (s *PlanningService) run(ctx context.Context, year *models.AcademicYear, result *dto.GenerateScheduleResult, log *zap.Logger) error {
	groups, err := s.groups.ListByAcademicYear(ctx, year.ID)
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		log.Warn("no group found for academic year")
		result.Message = "no group found for this academic year"
		return nil
	}

	for i := range groups {
		group := &groups[i]
		courses, err := s.courses.ListByGroup(ctx, group.ID)
		if err != nil {
			return err
		}
		log.Info("processing group", zap.String("group_id", group.ID), zap.String("group", group.Name), zap.Int("courses", len(courses)))

		for j := range courses {
			course := &courses[j]
			outcome, err := s.schedulePairing(ctx, year, group, course)
			if err != nil {
				return err
			}
			result.SessionsCreated += outcome.created
			result.SlotsSkipped += outcome.skipped
			if outcome.failure != "" {
				log.Warn("pairing not scheduled", zap.String("group_id", group.ID), zap.String("course_id", course.ID), zap.String("reason", outcome.failure))
				result.Errors = append(result.Errors, outcome.failure)
			}
		}
	}
	result.Success = true
	return nil
}

func (s *PlanningService) afterRun(ctx context.Context, academicYearID string, result *dto.GenerateScheduleResult, log *zap.Logger) {
	if result.SessionsCreated == 0 {
		return
	}
	if s.cache != nil {
		if err := s.cache.InvalidatePlanning(ctx); err != nil {
			log.Warn("planning cache invalidation failed", zap.Error(err))
		}
	}
	if s.travel != nil {
		if err := s.travel.ScheduleRebuild(academicYearID); err != nil {
			log.Warn("travel rebuild not scheduled", zap.Error(err))
			return
		}
		result.TravelQueued = true
	}
}

type pairingOutcome struct {
	created int
	skipped int
	failure string
}

func (s *PlanningService) schedulePairing(ctx context.Context, year *models.AcademicYear, group *models.Group, course *models.Course) (pairingOutcome, error) {
	var outcome pairingOutcome
	log := s.logger.With(zap.String("group_id", group.ID), zap.String("course_id", course.ID), zap.Int("group_size", group.Quantity))

	if group.Quantity < s.cfg.GroupSizeMin || group.Quantity > s.cfg.GroupSizeMax {
		outcome.failure = fmt.Sprintf("invalid group size for %s: %d (min: %d, max: %d)", group.Name, group.Quantity, s.cfg.GroupSizeMin, s.cfg.GroupSizeMax)
		return outcome, nil
	}

	mainSite, err := s.sites.FindByID(ctx, group.MainSiteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			outcome.failure = fmt.Sprintf("no main site defined for group %s", group.Name)
			return outcome, nil
		}
		return outcome, fmt.Errorf("load main site of group %s: %w", group.ID, err)
	}
	if !mainSite.HasOperatingHours() {
		outcome.failure = fmt.Sprintf("main site %s is not available during the academic year", mainSite.Name)
		return outcome, nil
	}

	resolution, err := s.resolver.Resolve(ctx, mainSite, group.Quantity)
	if err != nil {
		if errors.Is(err, errNoRoomAvailable) {
			outcome.failure = fmt.Sprintf("no room available for group %s and course %s", group.Name, course.Code)
			return outcome, nil
		}
		return outcome, err
	}
	room, site := resolution.Room, resolution.Site

	slots, err := s.slots.Slots(site, year)
	if err != nil {
		log.Warn("site hours could not be parsed", zap.String("site_id", site.ID), zap.Error(err))
	}
	if len(slots) == 0 {
		outcome.failure = fmt.Sprintf("no time slot available on site %s", site.Name)
		return outcome, nil
	}
	windowStart, windowEnd := slots[0].StartAt, slots[len(slots)-1].EndAt

	existing, err := s.sessions.ListByRoomInRange(ctx, room.ID, windowStart, windowEnd)
	if err != nil {
		return outcome, fmt.Errorf("load bookings of room %s: %w", room.ID, err)
	}
	roomBookings := make(Bookings, 0, len(existing)+len(slots))
	for _, booked := range existing {
		roomBookings.Add(booked.StartAt, booked.EndAt)
	}

	pool := s.loadEquipmentPool(ctx, course, site, windowStart, windowEnd, log)

	for _, slot := range slots {
		if roomBookings.Collides(slot.StartAt, slot.EndAt) {
			outcome.skipped++
			log.Debug("room collision, slot skipped", zap.String("room_id", room.ID), zap.Time("start_at", slot.StartAt))
			continue
		}

		session := &models.CourseSession{
			AcademicYearID: year.ID,
			CourseID:       course.ID,
			SiteID:         room.SiteID,
			RoomID:         room.ID,
			StartAt:        slot.StartAt,
			EndAt:          slot.EndAt,
		}
		equipmentIDs := pool.pick(slot.StartAt, slot.EndAt)

		created, err := s.createSession(ctx, session, group.ID, equipmentIDs)
		if err != nil {
			return outcome, err
		}
		if !created {
			outcome.skipped++
			roomBookings.Add(slot.StartAt, slot.EndAt)
			continue
		}
		roomBookings.Add(slot.StartAt, slot.EndAt)
		pool.book(equipmentIDs, slot.StartAt, slot.EndAt)
		outcome.created++
		log.Debug("session created", zap.String("session_id", session.ID), zap.String("room_id", room.ID), zap.Time("start_at", slot.StartAt), zap.Int("equipment", len(equipmentIDs)))
	}

	log.Info("pairing scheduled",
		zap.String("room_id", room.ID),
		zap.String("site_id", site.ID),
		zap.Bool("fallback_site", resolution.Fallback),
		zap.Int("sessions_created", outcome.created),
		zap.Int("slots_skipped", outcome.skipped),
	)
	return outcome, nil
}

// createSession writes the session with its joins in one transaction. It reports false
// when the storage backstop rejected a concurrent booking of the same room and start.
func (s *PlanningService) createSession(ctx context.Context, session *models.CourseSession, groupID string, equipmentIDs []string) (bool, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin session transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := s.sessions.Create(ctx, tx, session); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	if err := s.sessions.AttachGroups(ctx, tx, session.ID, []string{groupID}); err != nil {
		return false, err
	}
	if len(equipmentIDs) > 0 {
		if err := s.sessions.AttachEquipment(ctx, tx, session.ID, equipmentIDs); err != nil {
			return false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit session: %w", err)
	}
	committed = true
	return true, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// equipmentPool tracks mobile units of the required types and their bookings during a pairing.
type equipmentPool struct {
	types    []string
	units    map[string][]string
	bookings map[string]*Bookings
}

// loadEquipmentPool never fails the pairing: equipment assignment is best effort.
func (s *PlanningService) loadEquipmentPool(ctx context.Context, course *models.Course, site *models.Site, from, to time.Time, log *zap.Logger) *equipmentPool {
	pool := &equipmentPool{units: map[string][]string{}, bookings: map[string]*Bookings{}}
	if s.equipment == nil {
		return pool
	}

	typeIDs, err := s.courses.ListRequiredEquipmentTypes(ctx, course.ID)
	if err != nil {
		log.Warn("required equipment lookup failed", zap.Error(err))
		return pool
	}
	if len(typeIDs) == 0 {
		return pool
	}
	units, err := s.equipment.ListMobileByType(ctx, site.ID, typeIDs)
	if err != nil {
		log.Warn("mobile equipment lookup failed", zap.Error(err))
		return pool
	}

	ids := make([]string, 0, len(units))
	for _, unit := range units {
		pool.units[unit.TypeID] = append(pool.units[unit.TypeID], unit.ID)
		pool.bookings[unit.ID] = &Bookings{}
		ids = append(ids, unit.ID)
	}
	pool.types = typeIDs

	bookings, err := s.equipment.ListBookings(ctx, ids, from, to)
	if err != nil {
		log.Warn("equipment bookings lookup failed", zap.Error(err))
		return &equipmentPool{units: map[string][]string{}, bookings: map[string]*Bookings{}}
	}
	for _, booking := range bookings {
		if b, ok := pool.bookings[booking.EquipmentID]; ok {
			b.Add(booking.StartAt, booking.EndAt)
		}
	}
	for _, typeID := range typeIDs {
		if len(pool.units[typeID]) == 0 {
			log.Info("no mobile equipment of required type on site", zap.String("type_id", typeID), zap.String("site_id", site.ID))
		}
	}
	return pool
}

// pick returns one free unit per required type; types without a free unit are omitted.
func (p *equipmentPool) pick(start, end time.Time) []string {
	var picked []string
	for _, typeID := range p.types {
		for _, unitID := range p.units[typeID] {
			if !p.bookings[unitID].Collides(start, end) {
				picked = append(picked, unitID)
				break
			}
		}
	}
	return picked
}

func (p *equipmentPool) book(unitIDs []string, start, end time.Time) {
	for _, id := range unitIDs {
		if b, ok := p.bookings[id]; ok {
			b.Add(start, end)
		}
	}
}
