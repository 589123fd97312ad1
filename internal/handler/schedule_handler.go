package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduler-api/internal/dto"
	"github.com/noah-isme/sma-scheduler-api/internal/models"
	"github.com/noah-isme/sma-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
	"github.com/noah-isme/sma-scheduler-api/pkg/response"
)

type scheduleService interface {
	List(ctx context.Context, status models.ScheduleStatus, page, size int) ([]models.Schedule, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Schedule, error)
	ListSlots(ctx context.Context, filter models.ScheduleSlotFilter) ([]models.ScheduleSlot, error)
	DetectConflicts(ctx context.Context, scheduleID string) (*models.ValidationSummary, error)
	Analyze(ctx context.Context, scheduleID string) (*dto.ScheduleAnalysis, error)
	Publish(ctx context.Context, scheduleID string) (*models.Schedule, error)
	Archive(ctx context.Context, scheduleID string) (*models.Schedule, error)
	UpdateSlot(ctx context.Context, slotID string, req dto.UpdateScheduleSlotRequest) (*models.ScheduleSlot, error)
	PinSlot(ctx context.Context, slotID string, req dto.PinSlotRequest) (*models.ScheduleSlot, error)
	UnpinSlot(ctx context.Context, slotID string) (*models.ScheduleSlot, error)
}

type scheduleExporter interface {
	ExportSchedule(ctx context.Context, scheduleID, format string) (*service.ExportDocument, error)
}

// ScheduleHandler manages stored schedules and their slots.
type ScheduleHandler struct {
	service  scheduleService
	exporter scheduleExporter
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService, exporter scheduleExporter) *ScheduleHandler {
	return &ScheduleHandler{service: svc, exporter: exporter}
}

// List godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Param status query string false "DRAFT, PUBLISHED or ARCHIVED"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	page, size := 1, 20
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		size = v
	}
	status := models.ScheduleStatus(strings.ToUpper(c.Query("status")))
	schedules, pagination, err := h.service.List(c.Request.Context(), status, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Get godoc
// @Summary Get schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Slots godoc
// @Summary List schedule slots
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param teacherId query string false "Filter by teacher"
// @Param roomId query string false "Filter by room"
// @Param dayOfWeek query string false "Filter by day"
// @Param pinned query bool false "Only pinned slots"
// @Param conflicted query bool false "Filter by conflict flag"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/slots [get]
func (h *ScheduleHandler) Slots(c *gin.Context) {
	filter := models.ScheduleSlotFilter{
		ScheduleID: c.Param("id"),
		TeacherID:  c.Query("teacherId"),
		RoomID:     c.Query("roomId"),
		Day:        models.DayOfWeek(strings.ToUpper(c.Query("dayOfWeek"))),
	}
	if filter.Day != "" && !filter.Day.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown dayOfWeek %q", filter.Day)))
		return
	}
	if raw := c.Query("pinned"); raw != "" {
		pinned, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "pinned must be a boolean"))
			return
		}
		filter.OnlyPinned = pinned
	}
	if raw := c.Query("conflicted"); raw != "" {
		conflicted, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "conflicted must be a boolean"))
			return
		}
		filter.Conflicted = &conflicted
	}
	slots, err := h.service.ListSlots(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil, map[string]interface{}{"total": len(slots)})
}

// Publish godoc
// @Summary Publish a draft schedule
// @Description Rejected with 409 while hard conflicts remain.
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/publish [post]
func (h *ScheduleHandler) Publish(c *gin.Context) {
	schedule, err := h.service.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Archive godoc
// @Summary Archive a published schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/archive [post]
func (h *ScheduleHandler) Archive(c *gin.Context) {
	schedule, err := h.service.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// DetectConflicts godoc
// @Summary Re-run conflict detection
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/conflicts/detect [post]
func (h *ScheduleHandler) DetectConflicts(c *gin.Context) {
	summary, err := h.service.DetectConflicts(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Analyze godoc
// @Summary Explain a schedule's score
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/analyze [get]
func (h *ScheduleHandler) Analyze(c *gin.Context) {
	analysis, err := h.service.Analyze(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, analysis, nil)
}

// Export godoc
// @Summary Download a schedule
// @Tags Schedules
// @Produce octet-stream
// @Param id path string true "Schedule ID"
// @Param format path string true "csv, pdf or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /schedules/{id}/export/{format} [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	doc, err := h.exporter.ExportSchedule(c.Request.Context(), c.Param("id"), c.Param("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Body)
}

// UpdateSlot godoc
// @Summary Manually edit a slot
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.UpdateScheduleSlotRequest true "Slot edit"
// @Success 200 {object} response.Envelope
// @Router /schedule-slots/{id} [patch]
func (h *ScheduleHandler) UpdateSlot(c *gin.Context) {
	var req dto.UpdateScheduleSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	slot, err := h.service.UpdateSlot(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// PinSlot godoc
// @Summary Pin a slot
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.PinSlotRequest true "Pin request"
// @Success 200 {object} response.Envelope
// @Router /schedule-slots/{id}/pin [post]
func (h *ScheduleHandler) PinSlot(c *gin.Context) {
	var req dto.PinSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid pin payload"))
		return
	}
	slot, err := h.service.PinSlot(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// UnpinSlot godoc
// @Summary Unpin a slot
// @Tags Schedules
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /schedule-slots/{id}/pin [delete]
func (h *ScheduleHandler) UnpinSlot(c *gin.Context) {
	slot, err := h.service.UnpinSlot(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}
