package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
)

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

type noopTxProvider struct{}

func (noopTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

// memoryCache round-trips values through JSON like the redis cache does.
type memoryCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	raw, ok := c.items[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items[key] = raw
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.items, key)
		c.deleted = append(c.deleted, key)
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

type teacherStoreStub struct {
	rows    []models.Teacher
	err     error
	updated map[string]models.TeacherRoomPreferences
}

func (s *teacherStoreStub) ListActive(ctx context.Context) ([]models.Teacher, error) {
	return s.rows, s.err
}

func (s *teacherStoreStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	for _, t := range s.rows {
		if t.ID == id {
			out := t
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *teacherStoreStub) UpdateRoomPreferences(ctx context.Context, id string, prefs models.TeacherRoomPreferences) error {
	if s.updated == nil {
		s.updated = map[string]models.TeacherRoomPreferences{}
	}
	s.updated[id] = prefs
	return nil
}

type roomStoreStub struct {
	rows []models.Room
	err  error
}

func (s *roomStoreStub) ListActive(ctx context.Context) ([]models.Room, error) {
	return s.rows, s.err
}

func (s *roomStoreStub) FindByID(ctx context.Context, id string) (*models.Room, error) {
	for _, r := range s.rows {
		if r.ID == id {
			out := r
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

type courseStoreStub struct {
	rows []models.Course
	err  error
}

func (s *courseStoreStub) ListActive(ctx context.Context) ([]models.Course, error) {
	return s.rows, s.err
}

func (s *courseStoreStub) ListByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	if s.err != nil {
		return nil, s.err
	}
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Course
	for _, c := range s.rows {
		if want[c.ID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *courseStoreStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	for _, c := range s.rows {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

type studentStoreStub struct {
	rows []models.Student
	err  error
}

func (s *studentStoreStub) ListActive(ctx context.Context) ([]models.Student, error) {
	return s.rows, s.err
}

func (s *studentStoreStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	for _, st := range s.rows {
		if st.ID == id {
			out := st
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

type conditionStoreStub struct {
	rows []models.SpecialCondition
}

func (s *conditionStoreStub) ListActive(ctx context.Context) ([]models.SpecialCondition, error) {
	return s.rows, nil
}

type roomAssignmentStoreStub struct {
	rows     []models.CourseRoomAssignment
	replaced map[string][]models.CourseRoomAssignment
}

func (s *roomAssignmentStoreStub) ListActive(ctx context.Context) ([]models.CourseRoomAssignment, error) {
	return s.rows, nil
}

func (s *roomAssignmentStoreStub) ListByCourse(ctx context.Context, courseID string) ([]models.CourseRoomAssignment, error) {
	var out []models.CourseRoomAssignment
	for _, row := range s.rows {
		if row.CourseID == courseID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *roomAssignmentStoreStub) ReplaceForCourse(ctx context.Context, courseID string, rows []models.CourseRoomAssignment) error {
	if s.replaced == nil {
		s.replaced = map[string][]models.CourseRoomAssignment{}
	}
	s.replaced[courseID] = rows
	return nil
}

type configResolverStub struct {
	cfg models.SchedulerConfiguration
	err error
	ids []string
}

func (s *configResolverStub) Resolve(ctx context.Context, id *string) (models.SchedulerConfiguration, error) {
	if id != nil {
		s.ids = append(s.ids, *id)
	}
	return s.cfg, s.err
}

// scheduleStoreStub keeps schedules in memory. It is safe for use from queue workers.
type scheduleStoreStub struct {
	mu        sync.Mutex
	schedules map[string]models.Schedule
	created   int
	statusErr error
}

func newScheduleStoreStub(schedules ...models.Schedule) *scheduleStoreStub {
	s := &scheduleStoreStub{schedules: map[string]models.Schedule{}}
	for _, sch := range schedules {
		s.schedules[sch.ID] = sch
	}
	return s
}

func (s *scheduleStoreStub) List(ctx context.Context, status models.ScheduleStatus, page, size int) ([]models.Schedule, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Schedule
	for _, sch := range s.schedules {
		if status == "" || sch.Status == status {
			out = append(out, sch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (s *scheduleStoreStub) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sch, ok := s.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &sch, nil
}

func (s *scheduleStoreStub) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[schedule.ID] = *schedule
	s.created++
	return nil
}

func (s *scheduleStoreStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.ScheduleStatus, meta types.JSONText) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusErr != nil {
		return s.statusErr
	}
	sch, ok := s.schedules[id]
	if !ok {
		return sql.ErrNoRows
	}
	sch.Status = status
	sch.Meta = meta
	s.schedules[id] = sch
	return nil
}

func (s *scheduleStoreStub) get(id string) models.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedules[id]
}

// slotStoreStub keeps slots in memory keyed by id.
type slotStoreStub struct {
	mu              sync.Mutex
	slots           map[string]models.ScheduleSlot
	conflictWrites  int
	assignmentWrite int
}

func newSlotStoreStub(slots ...models.ScheduleSlot) *slotStoreStub {
	s := &slotStoreStub{slots: map[string]models.ScheduleSlot{}}
	for _, slot := range slots {
		s.slots[slot.ID] = slot.Clone()
	}
	return s
}

func (s *slotStoreStub) List(ctx context.Context, filter models.ScheduleSlotFilter) ([]models.ScheduleSlot, error) {
	all, _ := s.ListBySchedule(ctx, filter.ScheduleID)
	var out []models.ScheduleSlot
	for _, slot := range all {
		if filter.TeacherID != "" && (slot.TeacherID == nil || *slot.TeacherID != filter.TeacherID) {
			continue
		}
		if filter.OnlyPinned && !slot.Pinned {
			continue
		}
		if filter.Conflicted != nil && slot.HasConflict != *filter.Conflicted {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

func (s *slotStoreStub) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduleSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ScheduleSlot
	for _, slot := range s.slots {
		if slot.ScheduleID == scheduleID {
			out = append(out, slot.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *slotStoreStub) FindByID(ctx context.Context, id string) (*models.ScheduleSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := slot.Clone()
	return &out, nil
}

func (s *slotStoreStub) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.ScheduleSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range slots {
		s.slots[slot.ID] = slot.Clone()
	}
	return nil
}

func (s *slotStoreStub) Update(ctx context.Context, exec sqlx.ExtContext, slot *models.ScheduleSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[slot.ID]; !ok {
		return sql.ErrNoRows
	}
	s.slots[slot.ID] = slot.Clone()
	return nil
}

func (s *slotStoreStub) UpdateAssignments(ctx context.Context, exec sqlx.ExtContext, slots []models.ScheduleSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignmentWrite++
	for _, slot := range slots {
		s.slots[slot.ID] = slot.Clone()
	}
	return nil
}

func (s *slotStoreStub) UpdateConflicts(ctx context.Context, exec sqlx.ExtContext, slots []models.ScheduleSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflictWrites++
	for _, slot := range slots {
		stored, ok := s.slots[slot.ID]
		if !ok {
			continue
		}
		stored.HasConflict = slot.HasConflict
		stored.ConflictReason = slot.ConflictReason
		s.slots[slot.ID] = stored
	}
	return nil
}

func (s *slotStoreStub) get(id string) models.ScheduleSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[id].Clone()
}

func fixtureConfig() models.SchedulerConfiguration {
	cfg := models.DefaultSchedulerConfiguration()
	cfg.ID = "cfg-1"
	cfg.EarliestStartTime = models.NewClockTime(8, 0)
	cfg.LatestEndTime = models.NewClockTime(12, 0)
	cfg.MaxSolverMinutes = 1
	cfg.UnimprovedSecondsTermination = 5
	return cfg
}

type schedulingFixture struct {
	teachers    *teacherStoreStub
	rooms       *roomStoreStub
	courses     *courseStoreStub
	students    *studentStoreStub
	conditions  *conditionStoreStub
	assignments *roomAssignmentStoreStub
	configs     *configResolverStub
}

func newSchedulingFixture() *schedulingFixture {
	return &schedulingFixture{
		teachers: &teacherStoreStub{rows: []models.Teacher{
			{ID: "t1", Name: "Ada Lovelace", Active: true, Qualifications: pq.StringArray{"math"}},
			{ID: "t2", Name: "Rosalind Franklin", Active: true, Qualifications: pq.StringArray{"science"}},
		}},
		rooms: &roomStoreStub{rows: []models.Room{
			{ID: "r1", Number: "101", Building: "A", Capacity: intPtr(30), Active: true, Accessible: true},
			{ID: "r2", Number: "102", Building: "A", Capacity: intPtr(30), Active: true, Accessible: true},
		}},
		courses: &courseStoreStub{rows: []models.Course{
			{ID: "c1", Code: "MATH1", Name: "Algebra", Active: true, SessionsPerWeek: 2, Category: models.CourseCore, MeetingPattern: models.MeetingDaily, RequiredQualification: strPtr("math")},
			{ID: "c2", Code: "SCI1", Name: "Biology", Active: true, SessionsPerWeek: 2, Category: models.CourseCore, MeetingPattern: models.MeetingAlternating, RequiredQualification: strPtr("science")},
		}},
		students: &studentStoreStub{rows: []models.Student{
			{ID: "s1", Name: "Sam", Active: true, CourseRequests: models.CourseRequests{{CourseID: "c1"}, {CourseID: "c2"}}},
			{ID: "s2", Name: "Kim", Active: true, CourseRequests: models.CourseRequests{{CourseID: "c1"}, {CourseID: "c1"}}},
		}},
		conditions:  &conditionStoreStub{},
		assignments: &roomAssignmentStoreStub{},
		configs:     &configResolverStub{cfg: fixtureConfig()},
	}
}

func (f *schedulingFixture) sources() SchedulingSources {
	return SchedulingSources{
		Teachers:        f.teachers,
		Rooms:           f.rooms,
		Courses:         f.courses,
		Students:        f.students,
		Conditions:      f.conditions,
		RoomAssignments: f.assignments,
		Configurations:  f.configs,
	}
}

func fixtureSlot(id, scheduleID, course, teacher, room string, day models.DayOfWeek, start, end string) models.ScheduleSlot {
	slot := models.ScheduleSlot{
		ID:           id,
		ScheduleID:   scheduleID,
		CourseID:     course,
		Status:       models.SlotStatusActive,
		DayType:      models.DayTypeDaily,
		StudentIDs:   pq.StringArray{},
		CoTeacherIDs: pq.StringArray{},
	}
	if teacher != "" {
		slot.TeacherID = strPtr(teacher)
	}
	if room != "" {
		slot.RoomID = strPtr(room)
	}
	if day != "" {
		slot.SetTimeSlot(&models.TimeSlot{Day: day, Start: models.MustClockTime(start), End: models.MustClockTime(end)})
	}
	return slot
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}
