package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduler-api/internal/dto"
	"github.com/noah-isme/sma-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
)

type schedulerConfigurationServiceMock struct {
	created dto.SchedulerConfigurationRequest
}

func (m *schedulerConfigurationServiceMock) List(ctx context.Context) ([]models.SchedulerConfiguration, error) {
	return []models.SchedulerConfiguration{models.DefaultSchedulerConfiguration()}, nil
}

func (m *schedulerConfigurationServiceMock) Get(ctx context.Context, id string) (*models.SchedulerConfiguration, error) {
	if id != "cfg-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "scheduler configuration not found")
	}
	cfg := models.DefaultSchedulerConfiguration()
	cfg.ID = id
	return &cfg, nil
}

func (m *schedulerConfigurationServiceMock) Active(ctx context.Context) (models.SchedulerConfiguration, error) {
	return models.DefaultSchedulerConfiguration(), nil
}

func (m *schedulerConfigurationServiceMock) Create(ctx context.Context, req dto.SchedulerConfigurationRequest) (*models.SchedulerConfiguration, error) {
	m.created = req
	cfg := models.DefaultSchedulerConfiguration()
	req.ApplyTo(&cfg)
	cfg.ID = "cfg-2"
	return &cfg, nil
}

func (m *schedulerConfigurationServiceMock) Update(ctx context.Context, id string, req dto.SchedulerConfigurationRequest) (*models.SchedulerConfiguration, error) {
	return m.Get(ctx, id)
}

func (m *schedulerConfigurationServiceMock) Activate(ctx context.Context, id string) (*models.SchedulerConfiguration, error) {
	cfg, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cfg.Active = true
	return cfg, nil
}

func TestSchedulerConfigurationHandlerRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &schedulerConfigurationServiceMock{}
	h := NewSchedulerConfigurationHandler(svc)
	router := gin.New()
	group := router.Group("/scheduler-configurations")
	group.GET("", h.List)
	group.POST("", h.Create)
	group.GET("/active", h.Active)
	group.GET("/:id", h.Get)
	group.PUT("/:id", h.Update)
	group.POST("/:id/activate", h.Activate)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/scheduler-configurations", nil).Code)

	w := serve(router, http.MethodGet, "/scheduler-configurations/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"earliest_start_time":"07:30"`)

	w = serve(router, http.MethodPost, "/scheduler-configurations", []byte(`{"name":"Tight","maxSolverMinutes":2,"latestEndTime":"14:00"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Tight", svc.created.Name)
	require.NotNil(t, svc.created.LatestEndTime)
	assert.Equal(t, models.NewClockTime(14, 0), *svc.created.LatestEndTime)

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/scheduler-configurations/missing", nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPut, "/scheduler-configurations/cfg-1", []byte(`{"name":"x"}`)).Code)

	w = serve(router, http.MethodPost, "/scheduler-configurations/cfg-1/activate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active":true`)
}
