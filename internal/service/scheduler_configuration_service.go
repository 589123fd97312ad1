package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduler-api/internal/dto"
	"github.com/noah-isme/sma-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
)

const activeConfigurationCacheKey = "scheduler:configuration:active"

type schedulerConfigurationRepository interface {
	List(ctx context.Context) ([]models.SchedulerConfiguration, error)
	FindByID(ctx context.Context, id string) (*models.SchedulerConfiguration, error)
	FindActive(ctx context.Context) (*models.SchedulerConfiguration, error)
	Create(ctx context.Context, cfg *models.SchedulerConfiguration) error
	Update(ctx context.Context, cfg *models.SchedulerConfiguration) error
	Activate(ctx context.Context, id string) error
}

type keyValueCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// SchedulerConfigurationService manages versioned solver configurations.
type SchedulerConfigurationService struct {
	repo      schedulerConfigurationRepository
	cache     keyValueCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSchedulerConfigurationService constructs the service. cache may be nil.
func NewSchedulerConfigurationService(repo schedulerConfigurationRepository, cache keyValueCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *SchedulerConfigurationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &SchedulerConfigurationService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns every stored configuration, the active one first.
func (s *SchedulerConfigurationService) List(ctx context.Context) ([]models.SchedulerConfiguration, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scheduler configurations")
	}
	return rows, nil
}

// Get loads one configuration.
func (s *SchedulerConfigurationService) Get(ctx context.Context, id string) (*models.SchedulerConfiguration, error) {
	cfg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "scheduler configuration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduler configuration")
	}
	return cfg, nil
}

// Active returns the single active configuration, or the built-in defaults when none is stored.
func (s *SchedulerConfigurationService) Active(ctx context.Context) (models.SchedulerConfiguration, error) {
	if s.cache != nil {
		var cached models.SchedulerConfiguration
		if hit, err := s.cache.Get(ctx, activeConfigurationCacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}
	cfg, err := s.repo.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("no active scheduler configuration, using defaults")
			return models.DefaultSchedulerConfiguration(), nil
		}
		return models.SchedulerConfiguration{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active scheduler configuration")
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, activeConfigurationCacheKey, cfg, s.cacheTTL)
	}
	return *cfg, nil
}

// Resolve returns the configuration with id, or the active one when id is nil.
func (s *SchedulerConfigurationService) Resolve(ctx context.Context, id *string) (models.SchedulerConfiguration, error) {
	if id == nil || *id == "" {
		return s.Active(ctx)
	}
	cfg, err := s.Get(ctx, *id)
	if err != nil {
		return models.SchedulerConfiguration{}, err
	}
	return *cfg, nil
}

// Create stores a new inactive configuration built on the defaults.
func (s *SchedulerConfigurationService) Create(ctx context.Context, req dto.SchedulerConfigurationRequest) (*models.SchedulerConfiguration, error) {
	cfg := models.DefaultSchedulerConfiguration()
	cfg.Description = nil
	if err := s.apply(req, &cfg); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &cfg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create scheduler configuration")
	}
	s.logger.Info("scheduler configuration created", zap.String("id", cfg.ID), zap.String("name", cfg.Name), zap.Int("version", cfg.Version))
	return &cfg, nil
}

// Update overwrites the configuration's parameters.
func (s *SchedulerConfigurationService) Update(ctx context.Context, id string, req dto.SchedulerConfigurationRequest) (*models.SchedulerConfiguration, error) {
	cfg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(req, cfg); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, cfg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "scheduler configuration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update scheduler configuration")
	}
	if cfg.Active {
		s.invalidate(ctx)
	}
	return cfg, nil
}

// Activate makes id the only active configuration.
func (s *SchedulerConfigurationService) Activate(ctx context.Context, id string) (*models.SchedulerConfiguration, error) {
	if err := s.repo.Activate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "scheduler configuration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate scheduler configuration")
	}
	s.invalidate(ctx)
	s.logger.Info("scheduler configuration activated", zap.String("id", id))
	return s.Get(ctx, id)
}

func (s *SchedulerConfigurationService) apply(req dto.SchedulerConfigurationRequest, cfg *models.SchedulerConfiguration) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scheduler configuration payload")
	}
	req.ApplyTo(cfg)
	if err := s.validator.Struct(cfg); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scheduler configuration")
	}
	if cfg.LatestEndTime <= cfg.EarliestStartTime {
		return appErrors.Clone(appErrors.ErrValidation, "latestEndTime must be after earliestStartTime")
	}
	if cfg.MaxPeriodsPerTeacher > 0 && cfg.MinPeriodsPerTeacher > cfg.MaxPeriodsPerTeacher {
		return appErrors.Clone(appErrors.ErrValidation, "minPeriodsPerTeacher must not exceed maxPeriodsPerTeacher")
	}
	if cfg.MaxStudentsPerClass > 0 && cfg.MinStudentsPerClass > cfg.MaxStudentsPerClass {
		return appErrors.Clone(appErrors.ErrValidation, "minStudentsPerClass must not exceed maxStudentsPerClass")
	}
	return nil
}

func (s *SchedulerConfigurationService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, activeConfigurationCacheKey); err != nil {
		s.logger.Warn("failed to invalidate active configuration cache", zap.Error(err))
	}
}
