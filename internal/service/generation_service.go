package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduler-api/internal/dto"
	"github.com/noah-isme/sma-scheduler-api/internal/models"
	"github.com/noah-isme/sma-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
	"github.com/noah-isme/sma-scheduler-api/pkg/jobs"
	"github.com/noah-isme/sma-scheduler-api/pkg/middleware/requestid"
)

const (
	generationJobType  = "schedule_generation"
	exportCachePattern = "scheduler:job:*:export"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type generationScheduleStore interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error
}

type generationSlotStore interface {
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleSlot, error)
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.ScheduleSlot) error
	UpdateAssignments(ctx context.Context, exec sqlx.ExtContext, slots []models.ScheduleSlot) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// GenerationStores groups everything a run writes.
type GenerationStores struct {
	Schedules generationScheduleStore
	Slots     generationSlotStore
	Tx        txProvider
}

// GenerationConfig tunes the orchestrator.
type GenerationConfig struct {
	Workers        int
	QueueBuffer    int
	JobRetention   time.Duration
	PruneInterval  time.Duration
	ExportCacheTTL time.Duration
	MaxIterations  int
	DefaultSeed    int64
	Grid           scheduler.GridOptions
}

// GenerationService runs schedule generation jobs in the background and reports on them.
type GenerationService struct {
	sources   SchedulingSources
	stores    GenerationStores
	cache     keyValueCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       GenerationConfig

	registry *jobRegistry
	queue    *jobs.Queue
	dispatch jobDispatcher
	engine   *scheduler.Engine
	now      func() time.Time
	newID    func() string
}

// NewGenerationService wires the orchestrator. cache and metrics may be nil.
func NewGenerationService(sources SchedulingSources, stores GenerationStores, cache keyValueCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg GenerationConfig) *GenerationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.JobRetention <= 0 {
		cfg.JobRetention = 24 * time.Hour
	}
	if cfg.PruneInterval <= 0 {
		cfg.PruneInterval = 15 * time.Minute
	}
	if cfg.ExportCacheTTL <= 0 {
		cfg.ExportCacheTTL = 10 * time.Minute
	}
	s := &GenerationService{
		sources:   sources,
		stores:    stores,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		registry:  newJobRegistry(),
		engine:    scheduler.NewEngine(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	s.queue = jobs.NewQueue("schedule-generation", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.QueueBuffer,
		MaxRetries: 0,
		Logger:     logger,
		OnAbandon:  s.abandon,
	})
	s.dispatch = s.queue
	return s
}

// Start launches the worker pool and the retention loop.
func (s *GenerationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	go s.pruneLoop(ctx)
}

// Stop cancels running jobs and waits for workers to exit.
func (s *GenerationService) Stop() {
	s.queue.Stop()
}

// errAbandoned fails jobs still waiting when the worker pool shuts down.
var errAbandoned = errors.New("generation service stopped before the job could run")

// abandon fails a job the queue dropped without running it. The job passes through RUNNING so
// the QUEUED -> RUNNING -> FAILED order holds.
func (s *GenerationService) abandon(qj jobs.Job) {
	entry, ok := s.registry.get(qj.ID)
	if !ok {
		return
	}
	if s.markRunning(entry) {
		s.markFailed(entry, errAbandoned)
	}
}

// StartGeneration validates the request, registers a QUEUED job and hands it to the worker pool.
func (s *GenerationService) StartGeneration(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endDate must not be before startDate")
	}
	if req.BaseScheduleID != nil {
		if _, err := s.loadDraftSchedule(ctx, *req.BaseScheduleID); err != nil {
			return nil, err
		}
	}
	if req.ConfigurationID != nil {
		if _, err := s.sources.Configurations.Resolve(ctx, req.ConfigurationID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	job := models.GenerationJob{
		ID:        s.newID(),
		Status:    models.JobStatusQueued,
		Message:   "Waiting to start",
		Request:   toGenerationRequest(req),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.registry.add(job)
	if err := s.dispatch.Enqueue(jobs.Job{ID: job.ID, Type: generationJobType, Enqueued: now}); err != nil {
		s.registry.remove(job.ID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation job")
	}
	s.metrics.ObserveQueue(s.queue.Stats())
	s.logger.Sugar().Infow("generation job queued", "job_id", job.ID, "schedule_name", req.ScheduleName, "request_id", requestid.FromContext(ctx))
	return &dto.GenerateScheduleResponse{JobID: job.ID, Status: job.Status, Message: "Schedule generation started"}, nil
}

// GetJobStatus returns a snapshot of the job. It never waits on a running solver.
func (s *GenerationService) GetJobStatus(id string) (*models.GenerationJob, error) {
	entry, ok := s.registry.get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Job not found")
	}
	job := entry.snapshot()
	return &job, nil
}

// ListJobs returns every retained job, newest first.
func (s *GenerationService) ListJobs() []models.GenerationJob {
	return s.registry.list()
}

// ExportJobResult returns the schedule produced by a COMPLETED job.
func (s *GenerationService) ExportJobResult(ctx context.Context, id string) (*dto.ScheduleExport, error) {
	job, err := s.GetJobStatus(id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrJobNotFinished, "")
	}
	if job.Result == nil || job.Result.ScheduleID == nil {
		return nil, appErrors.Clone(appErrors.ErrJobWithoutSchedule, "")
	}

	key := exportCacheKey(id)
	if s.cache != nil {
		var cached dto.ScheduleExport
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	scheduleID := *job.Result.ScheduleID
	schedule, err := s.stores.Schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrJobWithoutSchedule, fmt.Sprintf("schedule %s produced by job %s no longer exists", scheduleID, id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load generated schedule")
	}
	slots, err := s.stores.Slots.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load generated slots")
	}
	exported := dto.NewScheduleExport(*job, *schedule, slots)
	out := &exported
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, out, s.cfg.ExportCacheTTL)
	}
	return out, nil
}

// PruneJobs forgets terminal jobs older than the retention window and returns how many were dropped.
func (s *GenerationService) PruneJobs(ctx context.Context) int {
	removed := s.registry.prune(s.now().Add(-s.cfg.JobRetention))
	if len(removed) == 0 {
		return 0
	}
	if s.cache != nil {
		keys := make([]string, 0, len(removed))
		for _, id := range removed {
			keys = append(keys, exportCacheKey(id))
		}
		_ = s.cache.Delete(ctx, keys...)
	}
	s.logger.Sugar().Infow("pruned generation jobs", "count", len(removed))
	return len(removed)
}

func (s *GenerationService) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PruneJobs(ctx)
			s.metrics.ObserveQueue(s.queue.Stats())
		}
	}
}

// handle is the queue worker. A panic inside a run fails the job instead of the worker.
func (s *GenerationService) handle(ctx context.Context, qj jobs.Job) (err error) {
	entry, ok := s.registry.get(qj.ID)
	if !ok {
		s.logger.Sugar().Warnw("generation job vanished before start", "job_id", qj.ID)
		return nil
	}
	if !s.markRunning(entry) {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			perr := &jobs.PanicError{Value: r, Stack: debug.Stack()}
			s.markFailed(entry, perr)
			err = perr
		}
	}()

	result, runErr := s.run(ctx, entry)
	if runErr != nil {
		s.markFailed(entry, runErr)
		return runErr
	}
	s.markCompleted(entry, result)
	return nil
}

func (s *GenerationService) markRunning(entry *jobEntry) bool {
	ok := false
	job := entry.update(func(job *models.GenerationJob) {
		if !job.Status.CanTransition(models.JobStatusRunning) {
			return
		}
		now := s.now()
		job.Status = models.JobStatusRunning
		job.Message = "Schedule generation in progress"
		job.StartedAt = &now
		job.UpdatedAt = now
		ok = true
	})
	if ok {
		s.metrics.JobStarted()
		s.logger.Sugar().Infow("generation job started", "job_id", job.ID)
	}
	return ok
}

func (s *GenerationService) markFailed(entry *jobEntry, cause error) {
	ok := false
	job := entry.update(func(job *models.GenerationJob) {
		if !job.Status.CanTransition(models.JobStatusFailed) {
			return
		}
		now := s.now()
		msg := cause.Error()
		job.Status = models.JobStatusFailed
		job.Error = &msg
		job.Message = msg
		job.FinishedAt = &now
		job.UpdatedAt = now
		ok = true
	})
	if ok {
		s.metrics.JobFinished(job.Status, job.Elapsed(s.now()), nil)
		s.logger.Sugar().Errorw("generation job failed", "job_id", job.ID, "error", cause)
	}
}

func (s *GenerationService) markCompleted(entry *jobEntry, result *models.GenerationResult) {
	ok := false
	job := entry.update(func(job *models.GenerationJob) {
		if !job.Status.CanTransition(models.JobStatusCompleted) {
			return
		}
		now := s.now()
		job.Status = models.JobStatusCompleted
		job.Progress = 100
		job.Message = result.SummaryMessage
		job.Result = result
		job.FinishedAt = &now
		job.UpdatedAt = now
		ok = true
	})
	if ok {
		s.metrics.JobFinished(job.Status, job.Elapsed(s.now()), result)
		s.logger.Sugar().Infow("generation job completed", "job_id", job.ID, "score", result.OptimizationScore, "conflicts", len(result.Conflicts))
	}
}

// progress only ever moves forward.
func (s *GenerationService) progress(entry *jobEntry) scheduler.ProgressFunc {
	return func(percent int, message string) {
		entry.update(func(job *models.GenerationJob) {
			if job.Status != models.JobStatusRunning {
				return
			}
			if percent > 99 {
				percent = 99
			}
			if percent > job.Progress {
				job.Progress = percent
			}
			job.Message = message
			job.UpdatedAt = s.now()
		})
	}
}

func (s *GenerationService) run(ctx context.Context, entry *jobEntry) (*models.GenerationResult, error) {
	job := entry.snapshot()
	req := job.Request
	report := s.progress(entry)

	report(2, "Loading scheduling data")
	in, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}

	schedule, isNew, err := s.prepareSlots(ctx, req, &in)
	if err != nil {
		return nil, err
	}

	in.TimeGrid = scheduler.BuildTimeGrid(in.Config, s.cfg.Grid)
	if len(in.TimeGrid) == 0 {
		return nil, fmt.Errorf("configuration %q yields an empty time grid", in.Config.Name)
	}

	problem := scheduler.NewProblem(in)
	solver := scheduler.NewSolver(s.engine, s.solverOptions(req, in.Config))
	report(8, "Solving")
	solveStarted := time.Now()
	solution, err := solver.Solve(ctx, problem, func(percent int, message string) {
		report(10+percent*75/100, message)
	})
	s.metrics.ObservePhase(phaseSolve, time.Since(solveStarted))
	if err != nil {
		return nil, fmt.Errorf("solver stopped: %w", err)
	}

	report(88, "Detecting conflicts")
	detection := scheduler.DetectConflicts(problem)

	report(92, "Saving schedule")
	if err := s.materialize(ctx, schedule, detection.Slots, isNew); err != nil {
		return nil, err
	}
	return buildResult(schedule.ID, solution, detection), nil
}

func (s *GenerationService) solverOptions(req models.GenerationRequest, cfg models.SchedulerConfiguration) scheduler.SolverOptions {
	opts := scheduler.SolverOptions{
		MaxIterations:   s.cfg.MaxIterations,
		Seed:            s.cfg.DefaultSeed,
		TimeLimit:       cfg.SolverTimeLimit(),
		UnimprovedLimit: cfg.UnimprovedLimit(),
	}
	if req.MaxIterations != nil {
		opts.MaxIterations = *req.MaxIterations
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	return opts
}

func (s *GenerationService) load(ctx context.Context, req models.GenerationRequest) (scheduler.Input, error) {
	started := time.Now()
	courseIDs := req.CourseIDs
	if req.BaseScheduleID != nil {
		courseIDs = nil
	}
	in, err := loadSchedulingInput(ctx, s.sources, req.ConfigurationID, courseIDs)
	s.metrics.ObservePhase(phaseLoad, time.Since(started))
	return in, err
}

// prepareSlots loads the draft being regenerated, or lays out empty shells for a new schedule.
func (s *GenerationService) prepareSlots(ctx context.Context, req models.GenerationRequest, in *scheduler.Input) (*models.Schedule, bool, error) {
	if req.BaseScheduleID != nil {
		schedule, err := s.loadDraftSchedule(ctx, *req.BaseScheduleID)
		if err != nil {
			return nil, false, err
		}
		slots, err := s.stores.Slots.ListBySchedule(ctx, schedule.ID)
		if err != nil {
			return nil, false, fmt.Errorf("load slots of schedule %s: %w", schedule.ID, err)
		}
		if len(slots) == 0 {
			return nil, false, fmt.Errorf("schedule %s has no slots to regenerate", schedule.ID)
		}
		in.Slots = slots
		return schedule, false, nil
	}

	schedule := &models.Schedule{
		ID:        s.newID(),
		Name:      req.ScheduleName,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    models.ScheduleStatusDraft,
	}
	in.Slots = buildSlotShells(schedule.ID, in.Courses, in.Students, in.Config, s.newID)
	if len(in.Slots) == 0 {
		return nil, false, errors.New("no active courses to schedule")
	}
	return schedule, true, nil
}

func (s *GenerationService) loadDraftSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.stores.Schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "base schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load base schedule")
	}
	if schedule.Status != models.ScheduleStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("schedule %s is %s; only DRAFT schedules can be regenerated", schedule.ID, schedule.Status))
	}
	return schedule, nil
}

func (s *GenerationService) materialize(ctx context.Context, schedule *models.Schedule, slots []models.ScheduleSlot, isNew bool) (err error) {
	if s.stores.Tx == nil {
		return errors.New("transaction provider missing")
	}
	started := time.Now()
	defer func() { s.metrics.ObservePhase(phaseMaterialize, time.Since(started)) }()

	tx, err := s.stores.Tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin materialize tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if isNew {
		if err = s.stores.Schedules.Create(ctx, tx, schedule); err != nil {
			return err
		}
		if err = s.stores.Slots.InsertBatch(ctx, tx, slots); err != nil {
			return err
		}
	} else if err = s.stores.Slots.UpdateAssignments(ctx, tx, slots); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit materialize tx: %w", err)
	}
	return nil
}

// buildSlotShells creates SessionsPerWeek unassigned slots for every section of every active course.
// A course is split into sections when its requests exceed the class size limit.
func buildSlotShells(scheduleID string, courses []models.Course, students []models.Student, cfg models.SchedulerConfiguration, newID func() string) []models.ScheduleSlot {
	requests := make(map[string][]string)
	for _, st := range students {
		if !st.Active {
			continue
		}
		seen := make(map[string]bool, len(st.CourseRequests))
		for _, r := range st.CourseRequests {
			if seen[r.CourseID] {
				continue
			}
			seen[r.CourseID] = true
			requests[r.CourseID] = append(requests[r.CourseID], st.ID)
		}
	}

	ordered := append([]models.Course(nil), courses...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Code != ordered[j].Code {
			return ordered[i].Code < ordered[j].Code
		}
		return ordered[i].ID < ordered[j].ID
	})

	var out []models.ScheduleSlot
	for _, course := range ordered {
		if !course.Active {
			continue
		}
		roster := append([]string(nil), requests[course.ID]...)
		sort.Strings(roster)

		limit := cfg.MaxStudentsPerClass
		if course.MaxStudents != nil && *course.MaxStudents > 0 {
			limit = *course.MaxStudents
		}
		sections := 1
		if limit > 0 && len(roster) > limit {
			sections = (len(roster) + limit - 1) / limit
		}
		sessions := course.SessionsPerWeek
		if sessions <= 0 {
			sessions = 1
		}

		for section := 0; section < sections; section++ {
			members := pq.StringArray{}
			for k, id := range roster {
				if k%sections == section {
					members = append(members, id)
				}
			}
			for n := 0; n < sessions; n++ {
				dayType := models.DayTypeDaily
				if course.MeetingPattern == models.MeetingAlternating {
					dayType = models.DayTypeOdd
					if n%2 == 1 {
						dayType = models.DayTypeEven
					}
				}
				out = append(out, models.ScheduleSlot{
					ID:           newID(),
					ScheduleID:   scheduleID,
					CourseID:     course.ID,
					StudentIDs:   append(pq.StringArray{}, members...),
					CoTeacherIDs: pq.StringArray{},
					Status:       models.SlotStatusActive,
					DayType:      dayType,
				})
			}
		}
	}
	return out
}

func buildResult(scheduleID string, solution scheduler.Solution, detection scheduler.DetectionResult) *models.GenerationResult {
	total, complete := 0, 0
	courseComplete := make(map[string]bool)
	for _, slot := range detection.Slots {
		if slot.IsCancelled() {
			continue
		}
		total++
		done := slot.IsComplete()
		if done {
			complete++
		}
		prev, seen := courseComplete[slot.CourseID]
		courseComplete[slot.CourseID] = done && (!seen || prev)
	}
	scheduled := 0
	for _, ok := range courseComplete {
		if ok {
			scheduled++
		}
	}
	completion := 0.0
	if total > 0 {
		completion = math.Round(float64(complete)/float64(total)*1000) / 10
	}

	id := scheduleID
	summary := fmt.Sprintf("Scheduled %d of %d courses (%.1f%% of slots complete); score %s; %d conflicts",
		scheduled, len(courseComplete), completion, solution.Score, len(detection.Conflicts))
	if !solution.Score.Feasible() {
		summary += "; hard constraints remain violated"
	}
	return &models.GenerationResult{
		ScheduleID:           &id,
		HardScore:            solution.Score.Hard,
		SoftScore:            solution.Score.Soft,
		OptimizationScore:    solution.Score.String(),
		CompletionPercentage: completion,
		TotalCourses:         len(courseComplete),
		ScheduledCourses:     scheduled,
		Conflicts:            detection.Conflicts,
		SummaryMessage:       summary,
		DurationSeconds:      solution.Duration.Seconds(),
	}
}

func toGenerationRequest(req dto.GenerateScheduleRequest) models.GenerationRequest {
	return models.GenerationRequest{
		ScheduleName:    req.ScheduleName,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		ConfigurationID: req.ConfigurationID,
		BaseScheduleID:  req.BaseScheduleID,
		CourseIDs:       append([]string(nil), req.CourseIDs...),
		Seed:            req.Seed,
		MaxIterations:   req.MaxIterations,
	}
}

func exportCacheKey(jobID string) string {
	return fmt.Sprintf("scheduler:job:%s:export", jobID)
}
