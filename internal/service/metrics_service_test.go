package service

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduler-api/internal/models"
	"github.com/noah-isme/sma-scheduler-api/pkg/jobs"
)

func TestMetricsServiceCacheLabels(t *testing.T) {
	m := NewMetricsService()

	m.RecordCacheLookup(exportCacheKey("job-1"), true, time.Millisecond)
	m.RecordCacheLookup(exportCacheKey("job-2"), false, time.Millisecond)
	m.RecordCacheLookup(activeConfigurationCacheKey, true, time.Millisecond)
	m.RecordCacheWrite("unrelated", nil, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheOps.WithLabelValues("export", "get", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheOps.WithLabelValues("export", "get", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheOps.WithLabelValues("configuration", "get", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheOps.WithLabelValues("other", "set", "ok")))
}

func TestMetricsServiceJobLifecycle(t *testing.T) {
	m := NewMetricsService()

	m.JobStarted()
	m.JobStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.jobsRunning))

	m.JobFinished(models.JobStatusCompleted, time.Second, &models.GenerationResult{HardScore: 0, SoftScore: -42, CompletionPercentage: 75})
	m.JobFinished(models.JobStatusFailed, time.Second, nil)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.jobsRunning))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsTotal.WithLabelValues(string(models.JobStatusCompleted))))
	assert.Equal(t, -42.0, testutil.ToFloat64(m.lastSoftScore))
	assert.Equal(t, 0.75, testutil.ToFloat64(m.lastComplete))

	m.ObserveQueue(jobs.Stats{Pending: 3, Retrying: 1})
	assert.Equal(t, 3.0, testutil.ToFloat64(m.queueDepth.WithLabelValues("pending")))
}

func TestMetricsServicePhasesAndRuntime(t *testing.T) {
	m := NewMetricsService()
	m.ObservePhase(phaseSolve, 2*time.Second)
	assert.Equal(t, 1, testutil.CollectAndCount(m.phaseDuration))

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
	assert.True(t, names["schedule_generation_phase_seconds"])
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest("GET", "/", 200, time.Millisecond)
		m.RecordCacheLookup("k", true, 0)
		m.ObservePhase(phaseLoad, 0)
		m.JobStarted()
		m.JobFinished(models.JobStatusFailed, 0, nil)
	})
	assert.Nil(t, m.Registry())
}
