package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduler-api/internal/handler"
	"github.com/noah-isme/sma-scheduler-api/internal/middleware"
	"github.com/noah-isme/sma-scheduler-api/internal/repository"
	"github.com/noah-isme/sma-scheduler-api/internal/service"
	"github.com/noah-isme/sma-scheduler-api/pkg/cache"
	"github.com/noah-isme/sma-scheduler-api/pkg/config"
	"github.com/noah-isme/sma-scheduler-api/pkg/database"
)

const shutdownTimeout = 15 * time.Second

// App owns the connections, services and HTTP engine of one process.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
	redis  *redis.Client

	Metrics        *service.MetricsService
	Generation     *service.GenerationService
	Schedules      *service.ScheduleService
	Configurations *service.SchedulerConfigurationService
	Engine         *gin.Engine
}

// New connects to Postgres (and Redis when caching is enabled) and wires every layer.
// Redis is optional: a failed connection is logged and the process runs without a cache.
func New(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*App, error) {
	if logr == nil {
		logr = zap.NewNop()
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, database.MigrateUp, logr); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	var rdb *redis.Client
	if cfg.Cache.Enabled {
		rdb, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			rdb = nil
		}
	}

	app := &App{cfg: cfg, logger: logr, db: db, redis: rdb}
	app.wire()
	return app, nil
}

func (a *App) wire() {
	validate := validator.New()
	a.Metrics = service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if a.redis != nil {
		cacheRepo = repository.NewCacheRepository(a.redis, a.logger)
	}
	cacheSvc := service.NewCacheService(cacheRepo, a.Metrics, a.cfg.Cache.ExportResultTTL, a.logger, cacheRepo != nil)

	teachers := repository.NewTeacherRepository(a.db)
	rooms := repository.NewRoomRepository(a.db)
	courses := repository.NewCourseRepository(a.db)
	students := repository.NewStudentRepository(a.db)
	conditions := repository.NewSpecialConditionRepository(a.db)
	roomAssignments := repository.NewCourseRoomAssignmentRepository(a.db)
	configurations := repository.NewSchedulerConfigurationRepository(a.db)
	schedules := repository.NewScheduleRepository(a.db)
	slots := repository.NewScheduleSlotRepository(a.db)
	blockDays := repository.NewBlockDayRepository(a.db)

	a.Configurations = service.NewSchedulerConfigurationService(configurations, cacheSvc, a.cfg.Cache.ActiveConfigTTL, validate, a.logger)
	sources := service.SchedulingSources{
		Teachers:        teachers,
		Rooms:           rooms,
		Courses:         courses,
		Students:        students,
		Conditions:      conditions,
		RoomAssignments: roomAssignments,
		Configurations:  a.Configurations,
	}

	a.Generation = service.NewGenerationService(sources, service.GenerationStores{
		Schedules: schedules,
		Slots:     slots,
		Tx:        a.db,
	}, cacheSvc, a.Metrics, validate, a.logger, service.GenerationConfig{
		Workers:        a.cfg.Scheduler.Workers,
		QueueBuffer:    a.cfg.Scheduler.QueueBuffer,
		JobRetention:   a.cfg.Scheduler.JobRetention,
		PruneInterval:  a.cfg.Scheduler.PruneInterval,
		ExportCacheTTL: a.cfg.Cache.ExportResultTTL,
		MaxIterations:  a.cfg.Scheduler.MaxIterations,
		DefaultSeed:    a.cfg.Scheduler.DefaultSeed,
	})
	a.Schedules = service.NewScheduleService(schedules, slots, teachers, rooms, sources, a.db, validate, a.logger)
	if a.cfg.Cache.InvalidateOnWrite {
		a.Schedules.UseExportCache(cacheSvc)
	}
	exports := service.NewExportService(schedules, slots, sources, a.logger)
	roomAssignmentSvc := service.NewRoomAssignmentService(courses, rooms, roomAssignments, teachers, validate, a.logger)
	blockDaySvc := service.NewBlockDayService(students, courses, blockDays, validate, a.logger)

	checks := map[string]handler.ReadinessCheck{"database": a.db.PingContext}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}

	if a.cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	a.Engine = handler.NewRouter(handler.Handlers{
		Generation:      handler.NewGenerationHandler(a.Generation),
		Schedules:       handler.NewScheduleHandler(a.Schedules, exports),
		Configurations:  handler.NewSchedulerConfigurationHandler(a.Configurations),
		RoomAssignments: handler.NewRoomAssignmentHandler(roomAssignmentSvc),
		BlockDays:       handler.NewBlockDayHandler(blockDaySvc),
		Metrics:         handler.NewMetricsHandler(a.Metrics, checks),
	}, handler.RouterOptions{
		APIPrefix:      a.cfg.APIPrefix,
		AllowedOrigins: a.cfg.CORS.AllowedOrigins,
		EnableDocs:     a.cfg.Env != config.EnvProduction,
		Logger:         a.logger,
		Metrics:        a.Metrics,
		GenerateLimit:  middleware.NewRateLimiter(a.cfg.Scheduler.GenerateRate, a.cfg.Scheduler.GenerateBurst),
	})
}

// Run starts the generation workers and serves HTTP until ctx is cancelled, then drains both.
func (a *App) Run(ctx context.Context) error {
	a.Generation.Start(ctx)
	defer a.Generation.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           a.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Sugar().Infow("server starting", "addr", srv.Addr, "env", a.cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// Close releases the database and cache connections.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close postgres", zap.Error(err))
	}
}
