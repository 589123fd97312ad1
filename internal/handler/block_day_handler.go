package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduler-api/internal/dto"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
	"github.com/noah-isme/sma-scheduler-api/pkg/response"
)

type blockDayService interface {
	GetPlan(ctx context.Context, studentID string) (*dto.BlockDayPlanResponse, error)
	ApplyMove(ctx context.Context, studentID string, req dto.BlockDayMoveRequest) (*dto.BlockDayPlanResponse, error)
	SavePlan(ctx context.Context, studentID string, req dto.BlockDayPlanRequest) (*dto.BlockDayPlanResponse, error)
}

// BlockDayHandler exposes a student's odd/even course split.
type BlockDayHandler struct {
	service blockDayService
}

// NewBlockDayHandler constructs the handler.
func NewBlockDayHandler(svc blockDayService) *BlockDayHandler {
	return &BlockDayHandler{service: svc}
}

// Get godoc
// @Summary Get a student's block-day plan
// @Tags Block Days
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/block-days [get]
func (h *BlockDayHandler) Get(c *gin.Context) {
	plan, err := h.service.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Save godoc
// @Summary Replace a student's block-day plan
// @Tags Block Days
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.BlockDayPlanRequest true "Plan"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/block-days [put]
func (h *BlockDayHandler) Save(c *gin.Context) {
	var req dto.BlockDayPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid block day plan"))
		return
	}
	plan, err := h.service.SavePlan(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}

// Move godoc
// @Summary Move courses between odd, even and available
// @Tags Block Days
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body dto.BlockDayMoveRequest true "Move"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/block-days/moves [post]
func (h *BlockDayHandler) Move(c *gin.Context) {
	var req dto.BlockDayMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid block day move"))
		return
	}
	plan, err := h.service.ApplyMove(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan, nil)
}
