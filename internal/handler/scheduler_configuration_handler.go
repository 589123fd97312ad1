package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduler-api/internal/dto"
	"github.com/noah-isme/sma-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
	"github.com/noah-isme/sma-scheduler-api/pkg/response"
)

type schedulerConfigurationService interface {
	List(ctx context.Context) ([]models.SchedulerConfiguration, error)
	Get(ctx context.Context, id string) (*models.SchedulerConfiguration, error)
	Active(ctx context.Context) (models.SchedulerConfiguration, error)
	Create(ctx context.Context, req dto.SchedulerConfigurationRequest) (*models.SchedulerConfiguration, error)
	Update(ctx context.Context, id string, req dto.SchedulerConfigurationRequest) (*models.SchedulerConfiguration, error)
	Activate(ctx context.Context, id string) (*models.SchedulerConfiguration, error)
}

// SchedulerConfigurationHandler exposes solver configuration endpoints.
type SchedulerConfigurationHandler struct {
	service schedulerConfigurationService
}

// NewSchedulerConfigurationHandler builds a new handler.
func NewSchedulerConfigurationHandler(service schedulerConfigurationService) *SchedulerConfigurationHandler {
	return &SchedulerConfigurationHandler{service: service}
}

// List godoc
// @Summary List scheduler configurations
// @Tags Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /scheduler-configurations [get]
func (h *SchedulerConfigurationHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Active godoc
// @Summary Get the active scheduler configuration
// @Description Falls back to the built-in defaults when no configuration is active.
// @Tags Configuration
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /scheduler-configurations/active [get]
func (h *SchedulerConfigurationHandler) Active(c *gin.Context) {
	cfg, err := h.service.Active(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Get godoc
// @Summary Get scheduler configuration
// @Tags Configuration
// @Produce json
// @Param id path string true "Configuration ID"
// @Success 200 {object} response.Envelope
// @Router /scheduler-configurations/{id} [get]
func (h *SchedulerConfigurationHandler) Get(c *gin.Context) {
	cfg, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Create godoc
// @Summary Create scheduler configuration
// @Tags Configuration
// @Accept json
// @Produce json
// @Param payload body dto.SchedulerConfigurationRequest true "Configuration payload"
// @Success 201 {object} response.Envelope
// @Router /scheduler-configurations [post]
func (h *SchedulerConfigurationHandler) Create(c *gin.Context) {
	var req dto.SchedulerConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid configuration payload"))
		return
	}
	cfg, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cfg)
}

// Update godoc
// @Summary Update scheduler configuration
// @Tags Configuration
// @Accept json
// @Produce json
// @Param id path string true "Configuration ID"
// @Param payload body dto.SchedulerConfigurationRequest true "Configuration payload"
// @Success 200 {object} response.Envelope
// @Router /scheduler-configurations/{id} [put]
func (h *SchedulerConfigurationHandler) Update(c *gin.Context) {
	var req dto.SchedulerConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid configuration payload"))
		return
	}
	cfg, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// Activate godoc
// @Summary Make a configuration the active one
// @Tags Configuration
// @Produce json
// @Param id path string true "Configuration ID"
// @Success 200 {object} response.Envelope
// @Router /scheduler-configurations/{id}/activate [post]
func (h *SchedulerConfigurationHandler) Activate(c *gin.Context) {
	cfg, err := h.service.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}
