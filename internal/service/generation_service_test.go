package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-scheduler-api/internal/dto"
	"github.com/noah-isme/sma-scheduler-api/internal/models"
	"github.com/noah-isme/sma-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-scheduler-api/pkg/errors"
	"github.com/noah-isme/sma-scheduler-api/pkg/jobs"
)

type generationFixture struct {
	sources   *schedulingFixture
	schedules *scheduleStoreStub
	slots     *slotStoreStub
	cache     *memoryCache
	service   *GenerationService
}

func newGenerationFixture(t *testing.T, tx txProvider, slots generationSlotStore) *generationFixture {
	t.Helper()
	f := &generationFixture{
		sources:   newSchedulingFixture(),
		schedules: newScheduleStoreStub(),
		slots:     newSlotStoreStub(),
		cache:     newMemoryCache(),
	}
	if tx == nil {
		tx = noopTxProvider{}
	}
	if slots == nil {
		slots = f.slots
	}
	f.service = NewGenerationService(
		f.sources.sources(),
		GenerationStores{Schedules: f.schedules, Slots: slots, Tx: tx},
		f.cache,
		NewMetricsService(),
		nil,
		zap.NewNop(),
		GenerationConfig{
			Workers:       1,
			MaxIterations: 300,
			DefaultSeed:   7,
			Grid:          scheduler.GridOptions{Days: []models.DayOfWeek{models.Monday, models.Tuesday}},
		},
	)
	f.service.newID = sequentialIDs("id")
	return f
}

func (f *generationFixture) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	f.service.Start(ctx)
	t.Cleanup(func() {
		cancel()
		f.service.Stop()
	})
}

func waitForStatus(t *testing.T, svc *GenerationService, jobID string, status models.JobStatus) *models.GenerationJob {
	t.Helper()
	var job *models.GenerationJob
	require.Eventually(t, func() bool {
		current, err := svc.GetJobStatus(jobID)
		if err != nil {
			return false
		}
		job = current
		return current.Status == status
	}, 10*time.Second, 10*time.Millisecond)
	return job
}

func TestGenerationServiceRunsJobToCompletion(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	f := newGenerationFixture(t, tx, nil)
	f.start(t)

	resp, err := f.service.StartGeneration(context.Background(), dto.GenerateScheduleRequest{ScheduleName: "Fall term"})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, resp.Status)
	assert.Equal(t, "Schedule generation started", resp.Message)

	job := waitForStatus(t, f.service, resp.JobID, models.JobStatusCompleted)
	require.NotNil(t, job.Result)
	require.NotNil(t, job.Result.ScheduleID)
	assert.Equal(t, 100, job.Progress)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.FinishedAt)
	assert.Nil(t, job.Error)
	assert.Equal(t, 2, job.Result.TotalCourses)
	assert.Equal(t, job.Result.SummaryMessage, job.Message)

	schedule := f.schedules.get(*job.Result.ScheduleID)
	assert.Equal(t, "Fall term", schedule.Name)
	assert.Equal(t, models.ScheduleStatusDraft, schedule.Status)

	export, err := f.service.ExportJobResult(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, resp.JobID, export.JobID)
	assert.Equal(t, schedule.ID, export.Schedule.ID)
	assert.Equal(t, schedule.ID, export.ScheduleID)
	assert.Equal(t, job.Result.OptimizationScore, export.OptimizationScore)
	assert.NotNil(t, export.Conflicts)
	assert.Len(t, export.Slots, 4)
	assert.True(t, f.cache.has(exportCacheKey(resp.JobID)))

	cached, err := f.service.ExportJobResult(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Len(t, cached.Slots, 4)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerationServiceRegenerationKeepsPinnedSlot(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	f := newGenerationFixture(t, tx, nil)

	pinned := fixtureSlot("base-1", "base", "c1", "t1", "r1", models.Monday, "09:00", "10:00")
	pinned.Pin("admin", time.Date(2025, 1, 1, 7, 0, 0, 0, time.UTC))
	f.schedules.schedules["base"] = models.Schedule{ID: "base", Name: "Draft", Status: models.ScheduleStatusDraft}
	f.slots.slots["base-1"] = pinned
	f.slots.slots["base-2"] = fixtureSlot("base-2", "base", "c1", "", "", "", "", "")
	f.start(t)

	resp, err := f.service.StartGeneration(context.Background(), dto.GenerateScheduleRequest{ScheduleName: "Draft", BaseScheduleID: strPtr("base")})
	require.NoError(t, err)

	job := waitForStatus(t, f.service, resp.JobID, models.JobStatusCompleted)
	require.NotNil(t, job.Result.ScheduleID)
	assert.Equal(t, "base", *job.Result.ScheduleID)
	assert.Equal(t, 0, f.schedules.created)
	assert.Equal(t, 1, f.slots.assignmentWrite)

	kept := f.slots.get("base-1")
	assert.True(t, kept.Pinned)
	require.NotNil(t, kept.TeacherID)
	require.NotNil(t, kept.RoomID)
	assert.Equal(t, "t1", *kept.TeacherID)
	assert.Equal(t, "r1", *kept.RoomID)
	ts, ok := kept.TimeSlot()
	require.True(t, ok)
	assert.Equal(t, "MONDAY 09:00-10:00", ts.String())

	moved := f.slots.get("base-2")
	assert.True(t, moved.IsComplete())

	export, err := f.service.ExportJobResult(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, "base", export.ScheduleID)
	assert.Len(t, export.Slots, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerationServiceUnknownJob(t *testing.T) {
	f := newGenerationFixture(t, nil, nil)

	_, err := f.service.GetJobStatus("missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "Job not found", appErrors.FromError(err).Message)

	_, err = f.service.ExportJobResult(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGenerationServiceExportSignals(t *testing.T) {
	f := newGenerationFixture(t, nil, nil)
	now := time.Now().UTC()
	f.service.registry.add(models.GenerationJob{ID: "running", Status: models.JobStatusRunning, CreatedAt: now})
	f.service.registry.add(models.GenerationJob{ID: "failed", Status: models.JobStatusFailed, CreatedAt: now})
	f.service.registry.add(models.GenerationJob{ID: "empty", Status: models.JobStatusCompleted, CreatedAt: now, Result: &models.GenerationResult{}})
	f.service.registry.add(models.GenerationJob{ID: "gone", Status: models.JobStatusCompleted, CreatedAt: now, Result: &models.GenerationResult{ScheduleID: strPtr("sch-x")}})

	cases := []struct {
		id     string
		code   string
		status int
	}{
		{"running", appErrors.ErrJobNotFinished.Code, 409},
		{"failed", appErrors.ErrJobNotFinished.Code, 409},
		{"empty", appErrors.ErrJobWithoutSchedule.Code, 500},
		{"gone", appErrors.ErrJobWithoutSchedule.Code, 500},
	}
	for _, tc := range cases {
		t.Run(tc.id, func(t *testing.T) {
			_, err := f.service.ExportJobResult(context.Background(), tc.id)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, tc.code, appErr.Code)
			assert.Equal(t, tc.status, appErr.Status)
		})
	}
}

func TestGenerationServiceRejectsInvalidRequests(t *testing.T) {
	f := newGenerationFixture(t, nil, nil)
	start := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -1)

	_, err := f.service.StartGeneration(context.Background(), dto.GenerateScheduleRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.service.StartGeneration(context.Background(), dto.GenerateScheduleRequest{ScheduleName: "x", StartDate: &start, EndDate: &end})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.service.StartGeneration(context.Background(), dto.GenerateScheduleRequest{ScheduleName: "x", BaseScheduleID: strPtr("nope")})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	f.schedules.schedules["pub"] = models.Schedule{ID: "pub", Status: models.ScheduleStatusPublished}
	_, err = f.service.StartGeneration(context.Background(), dto.GenerateScheduleRequest{ScheduleName: "x", BaseScheduleID: strPtr("pub")})
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	assert.Empty(t, f.service.ListJobs())
}

func TestGenerationServiceEnqueueFailureDropsJob(t *testing.T) {
	f := newGenerationFixture(t, nil, nil)

	_, err := f.service.StartGeneration(context.Background(), dto.GenerateScheduleRequest{ScheduleName: "x"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.service.ListJobs())
}

func TestGenerationServiceAbandonedJobFails(t *testing.T) {
	f := newGenerationFixture(t, nil, nil)
	now := time.Now().UTC()
	f.service.registry.add(models.GenerationJob{ID: "waiting", Status: models.JobStatusQueued, CreatedAt: now})
	f.service.registry.add(models.GenerationJob{ID: "done", Status: models.JobStatusCompleted, CreatedAt: now, Progress: 100})

	f.service.abandon(jobs.Job{ID: "waiting"})
	f.service.abandon(jobs.Job{ID: "done"})
	f.service.abandon(jobs.Job{ID: "unknown"})

	job, err := f.service.GetJobStatus("waiting")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, errAbandoned.Error(), *job.Error)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.FinishedAt)

	job, err = f.service.GetJobStatus("done")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
}

func TestGenerationServiceLoadFailureFailsJob(t *testing.T) {
	f := newGenerationFixture(t, nil, nil)
	f.sources.teachers.err = errors.New("db down")
	f.start(t)

	resp, err := f.service.StartGeneration(context.Background(), dto.GenerateScheduleRequest{ScheduleName: "x"})
	require.NoError(t, err)

	job := waitForStatus(t, f.service, resp.JobID, models.JobStatusFailed)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "load teachers: db down")
	assert.Nil(t, job.Result)
	assert.NotNil(t, job.FinishedAt)

	_, err = f.service.ExportJobResult(context.Background(), resp.JobID)
	assert.Equal(t, appErrors.ErrJobNotFinished.Code, appErrors.FromError(err).Code)
}

type panickingSlotStore struct {
	*slotStoreStub
}

func (panickingSlotStore) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.ScheduleSlot) error {
	panic("disk on fire")
}

func TestGenerationServicePanicFailsJob(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	mock.ExpectBegin()
	f := newGenerationFixture(t, tx, panickingSlotStore{newSlotStoreStub()})
	f.start(t)

	resp, err := f.service.StartGeneration(context.Background(), dto.GenerateScheduleRequest{ScheduleName: "x"})
	require.NoError(t, err)

	job := waitForStatus(t, f.service, resp.JobID, models.JobStatusFailed)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "disk on fire")
}

func TestGenerationServiceHandleSkipsJobsNotQueued(t *testing.T) {
	f := newGenerationFixture(t, nil, nil)
	f.service.registry.add(models.GenerationJob{ID: "done", Status: models.JobStatusCompleted})

	require.NoError(t, f.service.handle(context.Background(), jobs.Job{ID: "done"}))
	require.NoError(t, f.service.handle(context.Background(), jobs.Job{ID: "unknown"}))

	job, err := f.service.GetJobStatus("done")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
}

func TestGenerationServiceProgressIsMonotone(t *testing.T) {
	f := newGenerationFixture(t, nil, nil)
	entry := f.service.registry.add(models.GenerationJob{ID: "j", Status: models.JobStatusRunning})
	report := f.service.progress(entry)

	report(40, "a")
	report(20, "b")
	snap := entry.snapshot()
	assert.Equal(t, 40, snap.Progress)
	assert.Equal(t, "b", snap.Message)

	report(150, "c")
	assert.Equal(t, 99, entry.snapshot().Progress)

	entry.update(func(job *models.GenerationJob) { job.Status = models.JobStatusFailed })
	report(99, "late")
	assert.Equal(t, "c", entry.snapshot().Message)
}

func TestGenerationServicePruneJobs(t *testing.T) {
	f := newGenerationFixture(t, nil, nil)
	now := time.Date(2025, 9, 2, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return now }
	old := now.Add(-48 * time.Hour)
	recent := now.Add(-time.Hour)
	f.service.registry.add(models.GenerationJob{ID: "old", Status: models.JobStatusCompleted, FinishedAt: &old})
	f.service.registry.add(models.GenerationJob{ID: "recent", Status: models.JobStatusFailed, FinishedAt: &recent})
	f.service.registry.add(models.GenerationJob{ID: "running", Status: models.JobStatusRunning})
	require.NoError(t, f.cache.Set(context.Background(), exportCacheKey("old"), "payload", time.Minute))

	assert.Equal(t, 1, f.service.PruneJobs(context.Background()))
	assert.False(t, f.cache.has(exportCacheKey("old")))

	_, err := f.service.GetJobStatus("old")
	assert.Error(t, err)
	_, err = f.service.GetJobStatus("recent")
	assert.NoError(t, err)
	_, err = f.service.GetJobStatus("running")
	assert.NoError(t, err)
}

func TestBuildSlotShellsSplitsSectionsAndAlternates(t *testing.T) {
	cfg := fixtureConfig()
	cfg.MaxStudentsPerClass = 1
	courses := newSchedulingFixture().courses.rows
	students := newSchedulingFixture().students.rows

	slots := buildSlotShells("sch-1", courses, students, cfg, sequentialIDs("slot"))

	byCourse := map[string][]models.ScheduleSlot{}
	for _, slot := range slots {
		byCourse[slot.CourseID] = append(byCourse[slot.CourseID], slot)
		assert.Equal(t, "sch-1", slot.ScheduleID)
		assert.False(t, slot.IsComplete())
	}
	// c1 has two students and a limit of one, so two sections of two sessions each.
	require.Len(t, byCourse["c1"], 4)
	for _, slot := range byCourse["c1"] {
		assert.Len(t, slot.StudentIDs, 1)
		assert.Equal(t, models.DayTypeDaily, slot.DayType)
	}
	require.Len(t, byCourse["c2"], 2)
	assert.Equal(t, models.DayTypeOdd, byCourse["c2"][0].DayType)
	assert.Equal(t, models.DayTypeEven, byCourse["c2"][1].DayType)
}

func TestSolverOptionsPreferRequestOverrides(t *testing.T) {
	f := newGenerationFixture(t, nil, nil)
	seed := int64(99)
	iterations := 10
	opts := f.service.solverOptions(models.GenerationRequest{Seed: &seed, MaxIterations: &iterations}, fixtureConfig())
	assert.Equal(t, seed, opts.Seed)
	assert.Equal(t, iterations, opts.MaxIterations)
	assert.Equal(t, time.Minute, opts.TimeLimit)
	assert.Equal(t, 5*time.Second, opts.UnimprovedLimit)

	opts = f.service.solverOptions(models.GenerationRequest{}, fixtureConfig())
	assert.Equal(t, int64(7), opts.Seed)
	assert.Equal(t, 300, opts.MaxIterations)
}
