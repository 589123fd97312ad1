package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduler-api/internal/dto"
	"github.com/noah-isme/sma-scheduler-api/internal/models"
	"github.com/noah-isme/sma-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
)

type scheduleRepository interface {
	List(ctx context.Context, status models.ScheduleStatus, page, size int) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ScheduleStatus, meta types.JSONText) error
}

type scheduleSlotRepository interface {
	List(ctx context.Context, filter models.ScheduleSlotFilter) ([]models.ScheduleSlot, error)
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleSlot, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleSlot, error)
	Update(ctx context.Context, exec sqlx.ExtContext, slot *models.ScheduleSlot) error
	UpdateConflicts(ctx context.Context, exec sqlx.ExtContext, slots []models.ScheduleSlot) error
}

type teacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type roomLookup interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// ScheduleService covers the lifecycle of stored schedules and manual edits to their slots.
type ScheduleService struct {
	schedules scheduleRepository
	slots     scheduleSlotRepository
	teachers  teacherLookup
	rooms     roomLookup
	sources   SchedulingSources
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
	engine    *scheduler.Engine
	now       func() time.Time

	exportCache cacheInvalidator
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(schedules scheduleRepository, slots scheduleSlotRepository, teachers teacherLookup, rooms roomLookup, sources SchedulingSources, tx txProvider, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		schedules: schedules,
		slots:     slots,
		teachers:  teachers,
		rooms:     rooms,
		sources:   sources,
		tx:        tx,
		validator: validate,
		logger:    logger,
		engine:    scheduler.NewEngine(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// UseExportCache makes every slot or status write drop the cached job exports.
func (s *ScheduleService) UseExportCache(cache cacheInvalidator) {
	s.exportCache = cache
}

// List returns schedules with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, status models.ScheduleStatus, page, size int) ([]models.Schedule, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	schedules, total, err := s.schedules.List(ctx, status, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	return schedules, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one schedule.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

// ListSlots returns the schedule's slots narrowed by filter.
func (s *ScheduleService) ListSlots(ctx context.Context, filter models.ScheduleSlotFilter) ([]models.ScheduleSlot, error) {
	if _, err := s.Get(ctx, filter.ScheduleID); err != nil {
		return nil, err
	}
	slots, err := s.slots.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule slots")
	}
	return slots, nil
}

// DetectConflicts re-annotates every slot of the schedule and returns the summary.
func (s *ScheduleService) DetectConflicts(ctx context.Context, scheduleID string) (*models.ValidationSummary, error) {
	schedule, err := s.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	_, detection, err := s.detect(ctx, schedule.ID, nil)
	if err != nil {
		return nil, err
	}
	if err := s.slots.UpdateConflicts(ctx, nil, detection.Slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store conflict annotations")
	}
	s.dropCachedExports(ctx)
	summary := detection.Summary
	summary.ScheduleID = schedule.ID
	s.logger.Info("conflict detection finished",
		zap.String("schedule_id", schedule.ID),
		zap.Int("conflicts", len(summary.Conflicts)),
		zap.Bool("publishable", summary.Publishable))
	return &summary, nil
}

// Analyze scores the stored schedule and explains every penalty behind the score.
func (s *ScheduleService) Analyze(ctx context.Context, scheduleID string) (*dto.ScheduleAnalysis, error) {
	schedule, err := s.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	problem, detection, err := s.detect(ctx, schedule.ID, nil)
	if err != nil {
		return nil, err
	}
	score := s.engine.Score(problem)
	violations := s.engine.Explain(problem)
	byRule := make(map[string]int64)
	for _, v := range violations {
		byRule[v.Rule] += v.Penalty
	}
	summary := detection.Summary
	summary.ScheduleID = schedule.ID
	return &dto.ScheduleAnalysis{
		ScheduleID: schedule.ID,
		Score:      score.String(),
		HardScore:  score.Hard,
		SoftScore:  score.Soft,
		Feasible:   score.Feasible(),
		ByRule:     byRule,
		Violations: violations,
		Summary:    summary,
	}, nil
}

// Publish moves a DRAFT schedule to PUBLISHED. Any blocking conflict or hard penalty rejects it.
func (s *ScheduleService) Publish(ctx context.Context, scheduleID string) (result *models.Schedule, err error) {
	schedule, err := s.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !schedule.Status.CanTransition(models.ScheduleStatusPublished) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot publish a %s schedule", schedule.Status))
	}

	problem, detection, err := s.detect(ctx, schedule.ID, nil)
	if err != nil {
		return nil, err
	}
	score := s.engine.Score(problem)
	if !detection.Summary.Publishable || !score.Feasible() {
		if uerr := s.slots.UpdateConflicts(ctx, nil, detection.Slots); uerr != nil {
			s.logger.Warn("failed to store conflict annotations", zap.String("schedule_id", schedule.ID), zap.Error(uerr))
		}
		return nil, appErrors.Clone(appErrors.ErrUnresolvedConflicts,
			fmt.Sprintf("schedule has %d conflicts and score %s", len(detection.Conflicts), score)).
			WithDetails(map[string]interface{}{
				"conflicts": detection.Summary.ByType,
				"hardScore": score.Hard,
				"softScore": score.Soft,
			})
	}

	now := s.now()
	meta, err := mergeMeta(schedule.Meta, map[string]interface{}{"published_at": now.Format(time.RFC3339)})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule metadata")
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = s.slots.UpdateConflicts(ctx, tx, detection.Slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store conflict annotations")
	}
	if err = s.schedules.UpdateStatus(ctx, tx, schedule.ID, models.ScheduleStatusPublished, meta); err != nil {
		return nil, s.statusError(err, "failed to publish schedule")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit publish")
	}

	schedule.Status = models.ScheduleStatusPublished
	schedule.Meta = meta
	schedule.UpdatedAt = now
	s.dropCachedExports(ctx)
	s.logger.Info("schedule published", zap.String("schedule_id", schedule.ID))
	return schedule, nil
}

// Archive moves a PUBLISHED schedule to ARCHIVED.
func (s *ScheduleService) Archive(ctx context.Context, scheduleID string) (*models.Schedule, error) {
	schedule, err := s.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !schedule.Status.CanTransition(models.ScheduleStatusArchived) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot archive a %s schedule", schedule.Status))
	}
	now := s.now()
	meta, err := mergeMeta(schedule.Meta, map[string]interface{}{"archived_at": now.Format(time.RFC3339)})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule metadata")
	}
	if err := s.schedules.UpdateStatus(ctx, nil, schedule.ID, models.ScheduleStatusArchived, meta); err != nil {
		return nil, s.statusError(err, "failed to archive schedule")
	}
	schedule.Status = models.ScheduleStatusArchived
	schedule.Meta = meta
	schedule.UpdatedAt = now
	s.dropCachedExports(ctx)
	s.logger.Info("schedule archived", zap.String("schedule_id", schedule.ID))
	return schedule, nil
}

// UpdateSlot applies a manual edit to a slot of a DRAFT schedule and re-annotates the schedule.
// Pinned slots accept manual edits; only the solver is bound by the pin.
func (s *ScheduleService) UpdateSlot(ctx context.Context, slotID string, req dto.UpdateScheduleSlotRequest) (result *models.ScheduleSlot, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	slot, err := s.editableSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if err := s.applyEdit(ctx, slot, req); err != nil {
		return nil, err
	}
	slot.UpdatedAt = s.now()

	_, detection, err := s.detect(ctx, slot.ScheduleID, slot)
	if err != nil {
		return nil, err
	}
	for i := range detection.Slots {
		if detection.Slots[i].ID == slot.ID {
			slot.HasConflict = detection.Slots[i].HasConflict
			slot.ConflictReason = detection.Slots[i].ConflictReason
			break
		}
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = s.slots.Update(ctx, tx, slot); err != nil {
		return nil, s.slotError(err, "failed to update slot")
	}
	if err = s.slots.UpdateConflicts(ctx, tx, detection.Slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store conflict annotations")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit slot update")
	}
	s.dropCachedExports(ctx)
	s.logger.Info("schedule slot updated", zap.String("slot_id", slot.ID), zap.Bool("has_conflict", slot.HasConflict))
	return slot, nil
}

// PinSlot locks the slot against the solver.
func (s *ScheduleService) PinSlot(ctx context.Context, slotID string, req dto.PinSlotRequest) (*models.ScheduleSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pin payload")
	}
	slot, err := s.editableSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	slot.Pin(req.PinnedBy, now)
	slot.UpdatedAt = now
	if err := s.slots.Update(ctx, nil, slot); err != nil {
		return nil, s.slotError(err, "failed to pin slot")
	}
	s.dropCachedExports(ctx)
	return slot, nil
}

// UnpinSlot releases the lock.
func (s *ScheduleService) UnpinSlot(ctx context.Context, slotID string) (*models.ScheduleSlot, error) {
	slot, err := s.editableSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	slot.Unpin()
	slot.UpdatedAt = s.now()
	if err := s.slots.Update(ctx, nil, slot); err != nil {
		return nil, s.slotError(err, "failed to unpin slot")
	}
	s.dropCachedExports(ctx)
	return slot, nil
}

func (s *ScheduleService) dropCachedExports(ctx context.Context) {
	if s.exportCache == nil {
		return
	}
	if err := s.exportCache.Invalidate(ctx, exportCachePattern); err != nil {
		s.logger.Warn("failed to invalidate cached exports", zap.Error(err))
	}
}

func (s *ScheduleService) editableSlot(ctx context.Context, slotID string) (*models.ScheduleSlot, error) {
	slot, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		return nil, s.slotError(err, "failed to load slot")
	}
	schedule, err := s.Get(ctx, slot.ScheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.Status != models.ScheduleStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("slots of a %s schedule cannot be edited", schedule.Status))
	}
	return slot, nil
}

func (s *ScheduleService) applyEdit(ctx context.Context, slot *models.ScheduleSlot, req dto.UpdateScheduleSlotRequest) error {
	switch {
	case req.ClearTeacher:
		slot.TeacherID = nil
	case req.TeacherID != nil:
		if _, err := s.teachers.FindByID(ctx, *req.TeacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("teacher %s does not exist", *req.TeacherID))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
		id := *req.TeacherID
		slot.TeacherID = &id
	}

	switch {
	case req.ClearRoom:
		slot.RoomID = nil
	case req.RoomID != nil:
		if _, err := s.rooms.FindByID(ctx, *req.RoomID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s does not exist", *req.RoomID))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
		}
		id := *req.RoomID
		slot.RoomID = &id
	}

	switch {
	case req.ClearTime:
		slot.SetTimeSlot(nil)
	case req.Day != nil || req.StartTime != nil || req.EndTime != nil || req.Period != nil:
		var ts models.TimeSlot
		if current, ok := slot.TimeSlot(); ok {
			ts = current
		}
		if req.Day != nil {
			ts.Day = *req.Day
		}
		if req.StartTime != nil {
			ts.Start = *req.StartTime
		}
		if req.EndTime != nil {
			ts.End = *req.EndTime
		}
		if req.Period != nil {
			p := *req.Period
			ts.Period = &p
		}
		if !slot.HasTime() && (req.Day == nil || req.StartTime == nil || req.EndTime == nil) {
			return appErrors.Clone(appErrors.ErrValidation, "dayOfWeek, startTime and endTime must be set together")
		}
		if !ts.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "endTime must be after startTime")
		}
		slot.SetTimeSlot(&ts)
	}

	if req.Status != nil {
		slot.Status = *req.Status
	}
	if req.DayType != nil {
		slot.DayType = *req.DayType
	}
	if req.StudentIDs != nil {
		slot.StudentIDs = append(pq.StringArray{}, req.StudentIDs...)
	}
	if req.Notes != nil {
		notes := *req.Notes
		slot.Notes = &notes
	}
	return nil
}

// detect runs the detector over the stored schedule. edited, when set, replaces its stored copy.
func (s *ScheduleService) detect(ctx context.Context, scheduleID string, edited *models.ScheduleSlot) (*scheduler.Problem, scheduler.DetectionResult, error) {
	slots, err := s.slots.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, scheduler.DetectionResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule slots")
	}
	if edited != nil {
		for i := range slots {
			if slots[i].ID == edited.ID {
				slots[i] = edited.Clone()
			}
		}
	}
	in, err := loadSchedulingInput(ctx, s.sources, nil, nil)
	if err != nil {
		return nil, scheduler.DetectionResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduling data")
	}
	in.Slots = slots
	problem := scheduler.NewProblem(in)
	detection := scheduler.DetectConflicts(problem)
	return problem, detection, nil
}

func (s *ScheduleService) begin(ctx context.Context) (*sqlx.Tx, error) {
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	return tx, nil
}

func (s *ScheduleService) statusError(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
}

func (s *ScheduleService) slotError(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "schedule slot not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
}

// mergeMeta overlays values on a JSON object column.
func mergeMeta(meta types.JSONText, values map[string]interface{}) (types.JSONText, error) {
	merged := map[string]interface{}{}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &merged); err != nil {
			return nil, err
		}
		if merged == nil {
			merged = map[string]interface{}{}
		}
	}
	for k, v := range values {
		merged[k] = v
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	return types.JSONText(raw), nil
}
