package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduler-api/internal/dto"
	"github.com/noah-isme/sma-scheduler-api/internal/models"
	"github.com/noah-isme/sma-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
)

type scheduleServiceMock struct {
	filter     models.ScheduleSlotFilter
	edit       dto.UpdateScheduleSlotRequest
	publishErr error
	page, size int
}

func (m *scheduleServiceMock) List(ctx context.Context, status models.ScheduleStatus, page, size int) ([]models.Schedule, *models.Pagination, error) {
	m.page, m.size = page, size
	return []models.Schedule{{ID: "sch-1", Status: status}}, &models.Pagination{Page: page, PageSize: size, TotalCount: 1}, nil
}

func (m *scheduleServiceMock) Get(ctx context.Context, id string) (*models.Schedule, error) {
	if id != "sch-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	return &models.Schedule{ID: id, Status: models.ScheduleStatusDraft}, nil
}

func (m *scheduleServiceMock) ListSlots(ctx context.Context, filter models.ScheduleSlotFilter) ([]models.ScheduleSlot, error) {
	m.filter = filter
	return []models.ScheduleSlot{{ID: "sl-1", ScheduleID: filter.ScheduleID}}, nil
}

func (m *scheduleServiceMock) DetectConflicts(ctx context.Context, scheduleID string) (*models.ValidationSummary, error) {
	return &models.ValidationSummary{ScheduleID: scheduleID, Publishable: true}, nil
}

func (m *scheduleServiceMock) Analyze(ctx context.Context, scheduleID string) (*dto.ScheduleAnalysis, error) {
	return &dto.ScheduleAnalysis{ScheduleID: scheduleID, Score: "0hard/0soft", Feasible: true}, nil
}

func (m *scheduleServiceMock) Publish(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	if m.publishErr != nil {
		return nil, m.publishErr
	}
	return &models.Schedule{ID: scheduleID, Status: models.ScheduleStatusPublished}, nil
}

func (m *scheduleServiceMock) Archive(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	return &models.Schedule{ID: scheduleID, Status: models.ScheduleStatusArchived}, nil
}

func (m *scheduleServiceMock) UpdateSlot(ctx context.Context, slotID string, req dto.UpdateScheduleSlotRequest) (*models.ScheduleSlot, error) {
	m.edit = req
	return &models.ScheduleSlot{ID: slotID}, nil
}

func (m *scheduleServiceMock) PinSlot(ctx context.Context, slotID string, req dto.PinSlotRequest) (*models.ScheduleSlot, error) {
	slot := &models.ScheduleSlot{ID: slotID}
	slot.PinnedBy = &req.PinnedBy
	slot.Pinned = true
	return slot, nil
}

func (m *scheduleServiceMock) UnpinSlot(ctx context.Context, slotID string) (*models.ScheduleSlot, error) {
	return &models.ScheduleSlot{ID: slotID}, nil
}

type exporterMock struct {
	format string
}

func (m *exporterMock) ExportSchedule(ctx context.Context, scheduleID, format string) (*service.ExportDocument, error) {
	m.format = format
	if format == "docx" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	return &service.ExportDocument{Filename: "schedule_fall.csv", ContentType: "text/csv", Body: []byte("Day,Start\n")}, nil
}

func newScheduleRouter(svc *scheduleServiceMock, exporter *exporterMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewScheduleHandler(svc, exporter)
	router := gin.New()
	router.GET("/schedules", h.List)
	router.GET("/schedules/:id", h.Get)
	router.GET("/schedules/:id/slots", h.Slots)
	router.POST("/schedules/:id/publish", h.Publish)
	router.POST("/schedules/:id/archive", h.Archive)
	router.POST("/schedules/:id/conflicts/detect", h.DetectConflicts)
	router.GET("/schedules/:id/analyze", h.Analyze)
	router.GET("/schedules/:id/export/:format", h.Export)
	router.PATCH("/schedule-slots/:id", h.UpdateSlot)
	router.POST("/schedule-slots/:id/pin", h.PinSlot)
	router.DELETE("/schedule-slots/:id/pin", h.UnpinSlot)
	return router
}

func serve(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestScheduleHandlerSlotFilters(t *testing.T) {
	svc := &scheduleServiceMock{}
	router := newScheduleRouter(svc, &exporterMock{})

	w := serve(router, http.MethodGet, "/schedules/sch-1/slots?teacherId=t1&dayOfWeek=monday&pinned=true&conflicted=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sch-1", svc.filter.ScheduleID)
	assert.Equal(t, "t1", svc.filter.TeacherID)
	assert.Equal(t, models.Monday, svc.filter.Day)
	assert.True(t, svc.filter.OnlyPinned)
	require.NotNil(t, svc.filter.Conflicted)
	assert.False(t, *svc.filter.Conflicted)

	w = serve(router, http.MethodGet, "/schedules/sch-1/slots?dayOfWeek=funday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodGet, "/schedules/sch-1/slots?pinned=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerListAndGet(t *testing.T) {
	svc := &scheduleServiceMock{}
	router := newScheduleRouter(svc, &exporterMock{})

	w := serve(router, http.MethodGet, "/schedules?status=draft&page=2&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, svc.page)
	assert.Equal(t, 5, svc.size)
	assert.Contains(t, w.Body.String(), `"status":"DRAFT"`)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/schedules/sch-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/schedules/missing", nil).Code)
}

func TestScheduleHandlerLifecycle(t *testing.T) {
	svc := &scheduleServiceMock{}
	router := newScheduleRouter(svc, &exporterMock{})

	w := serve(router, http.MethodPost, "/schedules/sch-1/publish", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"PUBLISHED"`)

	svc.publishErr = appErrors.Clone(appErrors.ErrUnresolvedConflicts, "2 blocking conflicts remain")
	w = serve(router, http.MethodPost, "/schedules/sch-1/publish", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrUnresolvedConflicts.Code)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/schedules/sch-1/archive", nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/schedules/sch-1/conflicts/detect", nil).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/schedules/sch-1/analyze", nil).Code)
}

func TestScheduleHandlerSlotEdits(t *testing.T) {
	svc := &scheduleServiceMock{}
	router := newScheduleRouter(svc, &exporterMock{})

	w := serve(router, http.MethodPatch, "/schedule-slots/sl-1", []byte(`{"teacherId":"t2","startTime":"09:00","endTime":"09:50","dayOfWeek":"TUESDAY"}`))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.edit.TeacherID)
	assert.Equal(t, "t2", *svc.edit.TeacherID)
	require.NotNil(t, svc.edit.StartTime)
	assert.Equal(t, models.MustClockTime("09:00"), *svc.edit.StartTime)

	w = serve(router, http.MethodPatch, "/schedule-slots/sl-1", []byte(`{"startTime":"9am"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, http.MethodPost, "/schedule-slots/sl-1/pin", []byte(`{"pinnedBy":"coordinator"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pinned":true`)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodDelete, "/schedule-slots/sl-1/pin", nil).Code)
}

func TestScheduleHandlerExport(t *testing.T) {
	exporter := &exporterMock{}
	router := newScheduleRouter(&scheduleServiceMock{}, exporter)

	w := serve(router, http.MethodGet, "/schedules/sch-1/export/csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="schedule_fall.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Day,Start\n", w.Body.String())

	w = serve(router, http.MethodGet, "/schedules/sch-1/export/docx", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
