package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduler-api/internal/middleware"
)

func routerHandlers() Handlers {
	return Handlers{
		Generation:      NewGenerationHandler(nil),
		Schedules:       NewScheduleHandler(nil, nil),
		Configurations:  NewSchedulerConfigurationHandler(nil),
		RoomAssignments: NewRoomAssignmentHandler(nil),
		BlockDays:       NewBlockDayHandler(nil),
		Metrics:         NewMetricsHandler(nil, nil),
	}
}

func TestNewRouterRegistersRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(routerHandlers(), RouterOptions{APIPrefix: "api/v1/"})

	registered := make(map[string]bool)
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"POST /api/v1/schedule/generate",
		"GET /api/v1/schedule/job/:jobId/status",
		"GET /api/v1/schedule/job/:jobId/export",
		"GET /api/v1/schedule/jobs",
		"GET /api/v1/schedules/:id/export/:format",
		"PATCH /api/v1/schedule-slots/:id",
		"DELETE /api/v1/schedule-slots/:id/pin",
		"GET /api/v1/scheduler-configurations/active",
		"POST /api/v1/scheduler-configurations/:id/activate",
		"PUT /api/v1/courses/:id/rooms",
		"PUT /api/v1/teachers/:id/room-preferences",
		"POST /api/v1/students/:id/block-days/moves",
	} {
		assert.True(t, registered[want], want)
	}
	assert.False(t, registered["GET /docs/*any"])
}

func TestNewRouterServesDocsOutsideProduction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(routerHandlers(), RouterOptions{APIPrefix: "/api/v1", EnableDocs: true})

	var found bool
	for _, route := range r.Routes() {
		if route.Path == "/docs/*any" {
			found = true
		}
	}
	assert.True(t, found)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", nil).Code)
}

func TestNewRouterRateLimitsGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stub := &generationServiceMock{}
	h := routerHandlers()
	h.Generation = NewGenerationHandler(stub)
	r := NewRouter(h, RouterOptions{APIPrefix: "/api/v1", GenerateLimit: middleware.NewRateLimiter(0.001, 1)})

	body := []byte(`{"scheduleName":"Fall"}`)
	first := serve(r, http.MethodPost, "/api/v1/schedule/generate", body)
	require.Equal(t, http.StatusAccepted, first.Code)

	second := serve(r, http.MethodPost, "/api/v1/schedule/generate", body)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
