package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
	"github.com/noah-isme/sma-scheduler-api/pkg/export"
)

var scheduleExportHeaders = []string{"Day", "Start", "End", "Period", "Course", "Teacher", "Room", "Day Type", "Students", "Pinned", "Conflict"}

type exportScheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

type exportSlotReader interface {
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleSlot, error)
}

// ExportDocument is a rendered schedule ready to download.
type ExportDocument struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders stored schedules as CSV, PDF or XLSX documents.
type ExportService struct {
	schedules exportScheduleReader
	slots     exportSlotReader
	sources   SchedulingSources
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService. Only the teacher, room and course readers of sources are used.
func NewExportService(schedules exportScheduleReader, slots exportSlotReader, sources SchedulingSources, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		schedules: schedules,
		slots:     slots,
		sources:   sources,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ExportSchedule renders every slot of the schedule in the requested format.
func (s *ExportService) ExportSchedule(ctx context.Context, scheduleID, format string) (*ExportDocument, error) {
	f, err := export.ParseFormat(strings.ToLower(format))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, notFoundOrInternal(err, "schedule not found", "failed to load schedule")
	}
	slots, err := s.slots.ListBySchedule(ctx, schedule.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule slots")
	}
	dataset, err := s.buildDataset(ctx, schedule, slots)
	if err != nil {
		return nil, err
	}
	body, err := f.Renderer().Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule export")
	}
	s.logger.Debug("schedule exported", zap.String("schedule_id", schedule.ID), zap.String("format", string(f)), zap.Int("rows", len(dataset.Rows)))
	return &ExportDocument{Filename: s.buildFilename(schedule, f), ContentType: f.ContentType(), Body: body}, nil
}

func (s *ExportService) buildDataset(ctx context.Context, schedule *models.Schedule, slots []models.ScheduleSlot) (export.Dataset, error) {
	teachers, err := s.sources.Teachers.ListActive(ctx)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	rooms, err := s.sources.Rooms.ListActive(ctx)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	courses, err := s.sources.Courses.ListActive(ctx)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}

	teacherNames := make(map[string]string, len(teachers))
	for _, t := range teachers {
		teacherNames[t.ID] = t.Name
	}
	roomNames := make(map[string]string, len(rooms))
	for _, r := range rooms {
		roomNames[r.ID] = strings.TrimSpace(r.Building + " " + r.Number)
	}
	courseNames := make(map[string]string, len(courses))
	for _, c := range courses {
		courseNames[c.ID] = fmt.Sprintf("%s %s", c.Code, c.Name)
	}

	ordered := make([]models.ScheduleSlot, 0, len(slots))
	for _, slot := range slots {
		if !slot.IsCancelled() {
			ordered = append(ordered, slot)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return slotBefore(ordered[i], ordered[j]) })

	rows := make([]map[string]string, 0, len(ordered))
	for _, slot := range ordered {
		row := map[string]string{
			"Course":   lookupName(courseNames, &slot.CourseID),
			"Teacher":  lookupName(teacherNames, slot.TeacherID),
			"Room":     lookupName(roomNames, slot.RoomID),
			"Day Type": string(slot.DayType),
			"Students": strconv.Itoa(len(slot.StudentIDs)),
			"Pinned":   yesNo(slot.Pinned),
			"Conflict": "",
		}
		if ts, ok := slot.TimeSlot(); ok {
			row["Day"] = string(ts.Day)
			row["Start"] = ts.Start.String()
			row["End"] = ts.End.String()
		}
		if slot.Period != nil {
			row["Period"] = strconv.Itoa(*slot.Period)
		}
		if slot.HasConflict && slot.ConflictReason != nil {
			row["Conflict"] = *slot.ConflictReason
		}
		rows = append(rows, row)
	}
	return export.Dataset{
		Title:      fmt.Sprintf("%s (%s)", schedule.Name, schedule.Status),
		Headers:    scheduleExportHeaders,
		Rows:       rows,
		FlagColumn: "Conflict",
	}, nil
}

func (s *ExportService) buildFilename(schedule *models.Schedule, f export.Format) string {
	timestamp := s.now().Format("20060102_150405")
	return fmt.Sprintf("schedule_%s_%s.%s", sanitizeFilename(schedule.Name), timestamp, f)
}

// slotBefore orders by day then start time, unscheduled slots last.
func slotBefore(a, b models.ScheduleSlot) bool {
	ta, okA := a.TimeSlot()
	tb, okB := b.TimeSlot()
	if okA != okB {
		return okA
	}
	if okA {
		if ta.Day.Index() != tb.Day.Index() {
			return ta.Day.Index() < tb.Day.Index()
		}
		if ta.Start != tb.Start {
			return ta.Start < tb.Start
		}
	}
	if a.CourseID != b.CourseID {
		return a.CourseID < b.CourseID
	}
	return a.ID < b.ID
}

func lookupName(names map[string]string, id *string) string {
	if id == nil {
		return ""
	}
	if name, ok := names[*id]; ok && name != "" {
		return name
	}
	return *id
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func notFoundOrInternal(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}
