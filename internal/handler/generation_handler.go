package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-scheduler-api/internal/dto"
	"github.com/noah-isme/sma-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
	"github.com/noah-isme/sma-scheduler-api/pkg/response"
)

type generationService interface {
	StartGeneration(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	GetJobStatus(id string) (*models.GenerationJob, error)
	ListJobs() []models.GenerationJob
	ExportJobResult(ctx context.Context, id string) (*dto.ScheduleExport, error)
}

// GenerationHandler exposes the asynchronous timetable generation endpoints.
type GenerationHandler struct {
	service generationService
	now     func() time.Time
}

// NewGenerationHandler constructs the handler.
func NewGenerationHandler(svc generationService) *GenerationHandler {
	return &GenerationHandler{service: svc, now: func() time.Time { return time.Now().UTC() }}
}

// Generate godoc
// @Summary Start timetable generation
// @Description Queues a generation job and returns immediately. Poll the job status endpoint for progress.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Generation request"
// @Success 202 {object} response.Envelope
// @Header 202 {string} Location "Job status URL"
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /schedule/generate [post]
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.StartGeneration(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	location := strings.TrimSuffix(c.Request.URL.Path, "/generate") + "/job/" + result.JobID + "/status"
	response.Accepted(c, result, location)
}

// Status godoc
// @Summary Get generation job status
// @Tags Scheduler
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/job/{jobId}/status [get]
func (h *GenerationHandler) Status(c *gin.Context) {
	job, err := h.service.GetJobStatus(c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewJobStatusResponse(*job, h.now()), nil)
}

// List godoc
// @Summary List retained generation jobs
// @Tags Scheduler
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/jobs [get]
func (h *GenerationHandler) List(c *gin.Context) {
	now := h.now()
	jobs := h.service.ListJobs()
	out := make([]dto.JobStatusResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, dto.NewJobStatusResponse(job, now))
	}
	response.JSON(c, http.StatusOK, out, nil, map[string]interface{}{"total": len(out)})
}

// Export godoc
// @Summary Export the schedule produced by a completed job
// @Tags Scheduler
// @Produce json
// @Param jobId path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /schedule/job/{jobId}/export [get]
func (h *GenerationHandler) Export(c *gin.Context) {
	result, err := h.service.ExportJobResult(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
