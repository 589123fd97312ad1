package models

import "time"

// JobStatus tracks a generation job's lifecycle.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransition enforces QUEUED -> RUNNING -> COMPLETED|FAILED.
func (s JobStatus) CanTransition(to JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return to == JobStatusRunning
	case JobStatusRunning:
		return to == JobStatusCompleted || to == JobStatusFailed
	default:
		return false
	}
}

// GenerationRequest captures what the caller asked to generate.
type GenerationRequest struct {
	ScheduleName    string     `json:"schedule_name"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	ConfigurationID *string    `json:"configuration_id,omitempty"`
	BaseScheduleID  *string    `json:"base_schedule_id,omitempty"`
	CourseIDs       []string   `json:"course_ids,omitempty"`
	Seed            *int64     `json:"seed,omitempty"`
	MaxIterations   *int       `json:"max_iterations,omitempty"`
}

// GenerationResult is stored on a COMPLETED job.
type GenerationResult struct {
	ScheduleID           *string          `json:"schedule_id,omitempty"`
	HardScore            int64            `json:"hard_score"`
	SoftScore            int64            `json:"soft_score"`
	OptimizationScore    string           `json:"optimization_score"`
	CompletionPercentage float64          `json:"completion_percentage"`
	TotalCourses         int              `json:"total_courses"`
	ScheduledCourses     int              `json:"scheduled_courses"`
	Conflicts            []ConflictRecord `json:"conflicts"`
	SummaryMessage       string           `json:"summary_message"`
	DurationSeconds      float64          `json:"duration_seconds"`
}

// GenerationJob is a snapshot of one background generation run.
type GenerationJob struct {
	ID         string            `json:"id"`
	Status     JobStatus         `json:"status"`
	Progress   int               `json:"progress"`
	Message    string            `json:"message"`
	Request    GenerationRequest `json:"request"`
	Result     *GenerationResult `json:"result,omitempty"`
	Error      *string           `json:"error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

// Elapsed returns time spent running, or since creation while queued.
func (j GenerationJob) Elapsed(now time.Time) time.Duration {
	from := j.CreatedAt
	if j.StartedAt != nil {
		from = *j.StartedAt
	}
	to := now
	if j.FinishedAt != nil {
		to = *j.FinishedAt
	}
	if to.Before(from) {
		return 0
	}
	return to.Sub(from)
}
