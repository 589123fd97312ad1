package dto

import (
	"time"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
)

// GenerateScheduleRequest starts an asynchronous generation run.
type GenerateScheduleRequest struct {
	ScheduleName    string     `json:"scheduleName" validate:"required,max=128"`
	StartDate       *time.Time `json:"startDate"`
	EndDate         *time.Time `json:"endDate"`
	ConfigurationID *string    `json:"configurationId" validate:"omitempty,min=1"`
	BaseScheduleID  *string    `json:"baseScheduleId" validate:"omitempty,min=1"`
	CourseIDs       []string   `json:"courseIds" validate:"omitempty,dive,required"`
	Seed            *int64     `json:"seed"`
	MaxIterations   *int       `json:"maxIterations" validate:"omitempty,min=1,max=1000000"`
}

// GenerateScheduleResponse acknowledges a queued job.
type GenerateScheduleResponse struct {
	JobID   string           `json:"jobId"`
	Status  models.JobStatus `json:"status"`
	Message string           `json:"message"`
}

// JobStatusResponse is what a poller sees for one job. OptimizationScore and ScheduleID stay
// null until the job completes.
type JobStatusResponse struct {
	JobID             string           `json:"jobId"`
	Status            models.JobStatus `json:"status"`
	Progress          int              `json:"progress"`
	Message           string           `json:"message"`
	ElapsedSeconds    int64            `json:"elapsedSeconds"`
	OptimizationScore *string          `json:"optimizationScore"`
	ScheduleID        *string          `json:"scheduleId"`
	Error             *string          `json:"error,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	StartedAt         *time.Time       `json:"startedAt,omitempty"`
	FinishedAt        *time.Time       `json:"finishedAt,omitempty"`
}

// NewJobStatusResponse maps a job snapshot for the API.
func NewJobStatusResponse(job models.GenerationJob, now time.Time) JobStatusResponse {
	out := JobStatusResponse{
		JobID:          job.ID,
		Status:         job.Status,
		Progress:       job.Progress,
		Message:        job.Message,
		ElapsedSeconds: int64(job.Elapsed(now) / time.Second),
		Error:          job.Error,
		CreatedAt:      job.CreatedAt,
		StartedAt:      job.StartedAt,
		FinishedAt:     job.FinishedAt,
	}
	if job.Result != nil {
		score := job.Result.OptimizationScore
		out.OptimizationScore = &score
		out.ScheduleID = job.Result.ScheduleID
	}
	return out
}

// ConflictResponse is one detected conflict.
type ConflictResponse struct {
	Type       models.ConflictType `json:"type"`
	SlotIDs    []string            `json:"slotIds"`
	ResourceID string              `json:"resourceId,omitempty"`
	Message    string              `json:"message"`
}

// ScheduleExport is the outcome of a completed job together with the schedule it produced.
type ScheduleExport struct {
	JobID                string                `json:"jobId"`
	ScheduleID           string                `json:"scheduleId"`
	Status               models.JobStatus      `json:"status"`
	OptimizationScore    string                `json:"optimizationScore"`
	HardScore            int64                 `json:"hardScore"`
	SoftScore            int64                 `json:"softScore"`
	Slots                []models.ScheduleSlot `json:"slots"`
	CompletionPercentage float64               `json:"completionPercentage"`
	TotalCourses         int                   `json:"totalCourses"`
	ScheduledCourses     int                   `json:"scheduledCourses"`
	Conflicts            []ConflictResponse    `json:"conflicts"`
	SummaryMessage       string                `json:"summaryMessage"`
	DurationSeconds      float64               `json:"durationSeconds"`
	Schedule             models.Schedule       `json:"schedule"`
}

// NewScheduleExport flattens a job result. Slots and Conflicts are never null.
func NewScheduleExport(job models.GenerationJob, schedule models.Schedule, slots []models.ScheduleSlot) ScheduleExport {
	out := ScheduleExport{
		JobID:      job.ID,
		ScheduleID: schedule.ID,
		Status:     job.Status,
		Slots:      slots,
		Conflicts:  []ConflictResponse{},
		Schedule:   schedule,
	}
	if out.Slots == nil {
		out.Slots = []models.ScheduleSlot{}
	}
	if r := job.Result; r != nil {
		out.OptimizationScore = r.OptimizationScore
		out.HardScore = r.HardScore
		out.SoftScore = r.SoftScore
		out.CompletionPercentage = r.CompletionPercentage
		out.TotalCourses = r.TotalCourses
		out.ScheduledCourses = r.ScheduledCourses
		out.SummaryMessage = r.SummaryMessage
		out.DurationSeconds = r.DurationSeconds
		for _, c := range r.Conflicts {
			out.Conflicts = append(out.Conflicts, ConflictResponse{
				Type:       c.Type,
				SlotIDs:    append([]string{}, c.SlotIDs...),
				ResourceID: c.ResourceID,
				Message:    c.Message,
			})
		}
	}
	return out
}
