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

type roomAssignmentServiceMock struct {
	replaced dto.ReplaceRoomAssignmentsRequest
}

func (m *roomAssignmentServiceMock) ListCourseRooms(ctx context.Context, courseID string) ([]models.CourseRoomAssignment, error) {
	return []models.CourseRoomAssignment{{ID: "a1", CourseID: courseID, Type: models.RoomAssignmentPrimary}}, nil
}

func (m *roomAssignmentServiceMock) ReplaceCourseRooms(ctx context.Context, courseID string, req dto.ReplaceRoomAssignmentsRequest) ([]models.CourseRoomAssignment, error) {
	m.replaced = req
	for _, item := range req.Assignments {
		if item.Type == models.RoomAssignmentPrimary {
			return []models.CourseRoomAssignment{{CourseID: courseID, RoomID: item.RoomID, Type: item.Type}}, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrMissingPrimaryRoom, "")
}

func (m *roomAssignmentServiceMock) UpdateTeacherRoomPreferences(ctx context.Context, teacherID string, req dto.TeacherRoomPreferencesRequest) (*models.Teacher, error) {
	if req.Mode == models.RoomModeRestriction && len(req.RoomIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptyRestrictionList, "")
	}
	return &models.Teacher{ID: teacherID, RoomPreferences: models.TeacherRoomPreferences{Mode: req.Mode, RoomIDs: req.RoomIDs}}, nil
}

func TestRoomAssignmentHandlerRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &roomAssignmentServiceMock{}
	h := NewRoomAssignmentHandler(svc)
	router := gin.New()
	router.GET("/courses/:id/rooms", h.ListCourseRooms)
	router.PUT("/courses/:id/rooms", h.ReplaceCourseRooms)
	router.PUT("/teachers/:id/room-preferences", h.UpdateTeacherRoomPreferences)

	w := serve(router, http.MethodGet, "/courses/lab/rooms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"assignment_type":"PRIMARY"`)

	w = serve(router, http.MethodPut, "/courses/lab/rooms", []byte(`{"assignments":[{"roomId":"r1","assignmentType":"PRIMARY"}]}`))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.replaced.Assignments, 1)
	assert.Equal(t, "r1", *svc.replaced.Assignments[0].RoomID)

	w = serve(router, http.MethodPut, "/courses/lab/rooms", []byte(`{"assignments":[{"roomId":"r1","assignmentType":"SECONDARY"}]}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrMissingPrimaryRoom.Code)

	w = serve(router, http.MethodPut, "/teachers/t1/room-preferences", []byte(`{"mode":"RESTRICTION","roomIds":[]}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrEmptyRestrictionList.Code)

	w = serve(router, http.MethodPut, "/teachers/t1/room-preferences", []byte(`{"mode":"PREFERENCE","roomIds":["r2"],"strength":"HIGH"}`))
	assert.Equal(t, http.StatusOK, w.Code)
}
