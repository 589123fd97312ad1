package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduler-api/internal/dto"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
)

type blockDayServiceMock struct {
	move dto.BlockDayMoveRequest
	plan dto.BlockDayPlanRequest
}

func (m *blockDayServiceMock) GetPlan(ctx context.Context, studentID string) (*dto.BlockDayPlanResponse, error) {
	if studentID == "ghost" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &dto.BlockDayPlanResponse{StudentID: studentID, Odd: []string{}, Even: []string{}, Available: []string{"c2"}}, nil
}

func (m *blockDayServiceMock) ApplyMove(ctx context.Context, studentID string, req dto.BlockDayMoveRequest) (*dto.BlockDayPlanResponse, error) {
	m.move = req
	return &dto.BlockDayPlanResponse{StudentID: studentID, Odd: req.CourseIDs}, nil
}

func (m *blockDayServiceMock) SavePlan(ctx context.Context, studentID string, req dto.BlockDayPlanRequest) (*dto.BlockDayPlanResponse, error) {
	m.plan = req
	return &dto.BlockDayPlanResponse{StudentID: studentID, Odd: req.Odd, Even: req.Even, Warnings: []string{}}, nil
}

func TestBlockDayHandlerRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &blockDayServiceMock{}
	h := NewBlockDayHandler(svc)
	router := gin.New()
	router.GET("/students/:id/block-days", h.Get)
	router.PUT("/students/:id/block-days", h.Save)
	router.POST("/students/:id/block-days/moves", h.Move)

	w := serve(router, http.MethodGet, "/students/s1/block-days", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"available":["c2"]`)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/students/ghost/block-days", nil).Code)

	w = serve(router, http.MethodPost, "/students/s1/block-days/moves", []byte(`{"action":"MOVE_TO_ODD","courseIds":["c2"]}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MOVE_TO_ODD", svc.move.Action)
	assert.Equal(t, []string{"c2"}, svc.move.CourseIDs)

	w = serve(router, http.MethodPut, "/students/s1/block-days", []byte(`{"odd":["c2"],"even":["c3"]}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"c3"}, svc.plan.Even)

	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodPut, "/students/s1/block-days", []byte(`{"odd":"c2"}`)).Code)
}
