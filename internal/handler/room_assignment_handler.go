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

type roomAssignmentService interface {
	ListCourseRooms(ctx context.Context, courseID string) ([]models.CourseRoomAssignment, error)
	ReplaceCourseRooms(ctx context.Context, courseID string, req dto.ReplaceRoomAssignmentsRequest) ([]models.CourseRoomAssignment, error)
	UpdateTeacherRoomPreferences(ctx context.Context, teacherID string, req dto.TeacherRoomPreferencesRequest) (*models.Teacher, error)
}

// RoomAssignmentHandler exposes course room and teacher room preference endpoints.
type RoomAssignmentHandler struct {
	service roomAssignmentService
}

// NewRoomAssignmentHandler constructs the handler.
func NewRoomAssignmentHandler(svc roomAssignmentService) *RoomAssignmentHandler {
	return &RoomAssignmentHandler{service: svc}
}

// ListCourseRooms godoc
// @Summary List a course's rooms
// @Tags Rooms
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/rooms [get]
func (h *RoomAssignmentHandler) ListCourseRooms(c *gin.Context) {
	rows, err := h.service.ListCourseRooms(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// ReplaceCourseRooms godoc
// @Summary Replace a course's rooms
// @Description Requires one active PRIMARY room. Courses that do not use multiple rooms are cleared.
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body dto.ReplaceRoomAssignmentsRequest true "Room assignments"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses/{id}/rooms [put]
func (h *RoomAssignmentHandler) ReplaceCourseRooms(c *gin.Context) {
	var req dto.ReplaceRoomAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid room assignment payload"))
		return
	}
	rows, err := h.service.ReplaceCourseRooms(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// UpdateTeacherRoomPreferences godoc
// @Summary Replace a teacher's room preferences
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body dto.TeacherRoomPreferencesRequest true "Room preferences"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/room-preferences [put]
func (h *RoomAssignmentHandler) UpdateTeacherRoomPreferences(c *gin.Context) {
	var req dto.TeacherRoomPreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid room preference payload"))
		return
	}
	teacher, err := h.service.UpdateTeacherRoomPreferences(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}
