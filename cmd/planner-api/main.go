package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-planner-api/api/swagger"
	"github.com/noah-isme/campus-planner-api/internal/handler"
	"github.com/noah-isme/campus-planner-api/internal/middleware"
	"github.com/noah-isme/campus-planner-api/internal/models"
	"github.com/noah-isme/campus-planner-api/internal/repository"
	"github.com/noah-isme/campus-planner-api/internal/service"
	"github.com/noah-isme/campus-planner-api/pkg/cache"
	"github.com/noah-isme/campus-planner-api/pkg/config"
	"github.com/noah-isme/campus-planner-api/pkg/database"
	"github.com/noah-isme/campus-planner-api/pkg/jobs"
	"github.com/noah-isme/campus-planner-api/pkg/lock"
	"github.com/noah-isme/campus-planner-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-planner-api/pkg/middleware/requestid"
)

// @title Campus Planner API
// @version 1.0.0
// @description Course session scheduling across multi-site universities
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db.DB, logger.Component(logr, "migrate")); err != nil {
			logr.Fatal("migrations failed", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("redis connection failed", zap.Error(err))
	}

	// A typed nil client must not reach the redis.UniversalClient consumers.
	var (
		locker    lock.Locker = lock.NewMemoryLocker()
		cacheRepo service.CacheRepository
		universal redis.UniversalClient
	)
	if redisClient != nil {
		defer redisClient.Close()
		universal = redisClient
		locker = lock.NewRedisLocker(universal)
		cacheRepo = repository.NewCacheRepository(universal, logger.Component(logr, "cache"))
		logr.Info("redis enabled", zap.String("addr", cache.Addr(cfg.Redis)))
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.PlanningTTL, logger.Component(logr, "cache"), cfg.Cache.Enabled)

	siteRepo := repository.NewSiteRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	yearRepo := repository.NewAcademicYearRepository(db)
	equipmentRepo := repository.NewEquipmentRepository(db)
	sessionRepo := repository.NewCourseSessionRepository(db)
	deplacementRepo := repository.NewDeplacementRepository(db)

	slots := service.NewSlotCalculator(cfg.Planning.CourseDuration, cfg.Planning.DefaultTimezone)

	travelSvc := service.NewTravelService(service.TravelServiceDeps{
		Sessions:  sessionRepo,
		Store:     deplacementRepo,
		Sites:     siteRepo,
		Tx:        db,
		Locker:    locker,
		Slots:     slots,
		Metrics:   metricsSvc,
		Cache:     cacheSvc,
		Validator: validate,
		Logger:    logger.Component(logr, "travel"),
	}, cfg.Planning)

	travelQueue := jobs.NewQueue("travel", travelSvc.HandleJob, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.Travel.WorkerRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logger.Component(logr, "jobs"),
	})
	travelSvc.UseQueue(travelQueue)

	planningDeps := service.PlanningServiceDeps{
		Years:     yearRepo,
		Groups:    groupRepo,
		Courses:   courseRepo,
		Sites:     siteRepo,
		Resolver:  service.NewRoomResolver(roomRepo, siteRepo, logger.Component(logr, "rooms")),
		Slots:     slots,
		Sessions:  sessionRepo,
		Equipment: equipmentRepo,
		Tx:        db,
		Locker:    locker,
		Metrics:   metricsSvc,
		Cache:     cacheSvc,
		Validator: validate,
		Logger:    logger.Component(logr, "planning"),
	}
	if cfg.Travel.RebuildAfterGeneration {
		planningDeps.Travel = travelSvc
	}
	planningSvc := service.NewPlanningService(planningDeps, cfg.Planning)

	validationSvc := service.NewSessionValidationService(sessionRepo, cfg.Planning.EditSafetyMargin, logger.Component(logr, "sessions"))
	sessionSvc := service.NewSessionService(sessionRepo, roomRepo, groupRepo, db, validationSvc, cfg.Planning.CourseDuration, cacheSvc, travelSvc, validate, logger.Component(logr, "sessions"))
	groupPlanningSvc := service.NewGroupPlanningService(groupRepo, siteRepo, sessionRepo, deplacementRepo, slots, cacheSvc, cfg.Cache.PlanningTTL, validate, logger.Component(logr, "group-planning"))
	exportSvc := service.NewExportService(groupPlanningSvc, cfg.Export, validate, logger.Component(logr, "export"))
	authSvc := service.NewAuthService(cfg.JWT, logger.Component(logr, "auth"))

	scheduler := jobs.NewScheduler(logger.Component(logr, "cron"))
	if err := scheduler.Register("travel-rebuild", cfg.Travel.RebuildCron, travelSvc.RebuildAll); err != nil {
		logr.Fatal("invalid travel rebuild schedule", zap.Error(err))
	}

	checks := map[string]handler.ReadinessCheck{
		"postgres": func(ctx context.Context) error { return db.PingContext(ctx) },
	}
	if universal != nil {
		checks["redis"] = func(ctx context.Context) error { return universal.Ping(ctx).Err() }
	}

	planningHandler := handler.NewPlanningHandler(planningSvc, groupPlanningSvc, exportSvc)
	travelHandler := handler.NewTravelHandler(travelSvc)
	sessionHandler := handler.NewSessionHandler(validationSvc, sessionSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	readers := middleware.RequireRoles(models.RoleAdmin, models.RolePlanner, models.RoleViewer)
	planners := middleware.RequireRoles(models.RoleAdmin, models.RolePlanner)
	admins := middleware.RequireRoles(models.RoleAdmin)

	api.POST("/academic-years/:id/schedule/generate", planners, planningHandler.Generate)
	api.POST("/academic-years/:id/deplacements/generate", planners, travelHandler.GenerateForAcademicYear)
	api.POST("/deplacements/generate", admins, travelHandler.GenerateAll)
	api.GET("/deplacements", readers, travelHandler.List)
	api.GET("/deplacements/stats", readers, travelHandler.Stats)
	api.GET("/sessions/:id/mutability", readers, sessionHandler.Mutability)
	api.GET("/sessions/:id/status", readers, sessionHandler.Status)
	api.PATCH("/sessions/:id", planners, sessionHandler.Update)
	api.DELETE("/sessions/:id", planners, sessionHandler.Delete)
	api.GET("/groups/:id/planning", readers, planningHandler.GroupPlanning)
	api.GET("/groups/:id/timetable/export", readers, planningHandler.ExportTimetable)
	api.GET("/system/metrics", admins, metricsHandler.System)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	travelQueue.Start(ctx)
	scheduler.Start()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("http shutdown", zap.Error(err))
	}
	scheduler.Stop()
	travelQueue.Stop()
	logr.Info("server stopped", zap.Int("pending_travel_jobs", travelQueue.Pending()))
}
