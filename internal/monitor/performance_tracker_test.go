package monitor

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackerClock drives a PerformanceTracker through deterministic time.
type trackerClock struct {
	now time.Time
}

func (c *trackerClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTracker() (*PerformanceTracker, *trackerClock) {
	clock := &trackerClock{now: time.Date(2024, 7, 2, 12, 0, 0, 0, time.UTC)}
	tracker := NewPerformanceTracker()
	tracker.nowFunc = func() time.Time { return clock.now }
	return tracker, clock
}

func Test_PerformanceTracker_completeRecordsDurationAndSteps(t *testing.T) {
	tracker, clock := newTestTracker()

	tracker.StartTracking("acme")
	tracker.RecordStep("acme", "schema_provisioning", 2*time.Second, nil)
	tracker.RecordStep("acme", "dns_record", 1*time.Second, nil)
	clock.advance(5 * time.Second)
	tracker.Complete("acme", true, nil)

	stats := tracker.GetProvisioningStats(time.Hour)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.Equal(t, 5*time.Second, stats.AvgDuration)
	assert.Equal(t, 5*time.Second, stats.MedianDuration)
	assert.Equal(t, 5*time.Second, stats.MinDuration)
	assert.Equal(t, 5*time.Second, stats.MaxDuration)
	assert.Equal(t, 0, stats.InFlight)
}

func Test_PerformanceTracker_durationAggregates(t *testing.T) {
	tracker, clock := newTestTracker()

	for _, d := range []time.Duration{10 * time.Second, 2 * time.Second, 6 * time.Second} {
		tracker.StartTracking("acme")
		clock.advance(d)
		tracker.Complete("acme", true, nil)
	}

	stats := tracker.GetProvisioningStats(time.Hour)
	assert.Equal(t, 6*time.Second, stats.AvgDuration)
	assert.Equal(t, 6*time.Second, stats.MedianDuration)
	assert.Equal(t, 2*time.Second, stats.MinDuration)
	assert.Equal(t, 10*time.Second, stats.MaxDuration)

	// An even count medians to the mean of the middle pair.
	tracker.StartTracking("acme")
	clock.advance(4 * time.Second)
	tracker.Complete("acme", true, nil)

	stats = tracker.GetProvisioningStats(time.Hour)
	assert.Equal(t, 5*time.Second, stats.MedianDuration)
}

func Test_PerformanceTracker_failureKeepsCause(t *testing.T) {
	tracker, clock := newTestTracker()

	tracker.StartTracking("acme")
	tracker.RecordStep("acme", "schema_provisioning", 2*time.Second, errors.New("schema already exists"))
	clock.advance(2 * time.Second)
	tracker.Complete("acme", false, errors.New("database schema creation for tenant failed"))

	require.Len(t, tracker.completed, 1)
	rec := tracker.completed[0]
	assert.False(t, rec.Success)
	assert.Equal(t, "database schema creation for tenant failed", rec.Error)
	require.Len(t, rec.Steps, 1)
	assert.False(t, rec.Steps[0].Success)
	assert.Equal(t, "schema already exists", rec.Steps[0].Error)
}

func Test_PerformanceTracker_recordStepWithoutStartIsDropped(t *testing.T) {
	tracker, _ := newTestTracker()

	tracker.RecordStep("ghost", "schema_provisioning", time.Second, nil)
	tracker.Complete("ghost", true, nil)

	stats := tracker.GetProvisioningStats(time.Hour)
	assert.Equal(t, 0, stats.Total)
}

func Test_PerformanceTracker_statsRespectWindow(t *testing.T) {
	tracker, clock := newTestTracker()

	tracker.StartTracking("old")
	clock.advance(10 * time.Second)
	tracker.Complete("old", true, nil)

	clock.advance(2 * time.Hour)

	tracker.StartTracking("recent")
	clock.advance(20 * time.Second)
	tracker.Complete("recent", false, errors.New("schema step failed"))

	stats := tracker.GetProvisioningStats(time.Hour)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0.0, stats.SuccessRate)

	allTime := tracker.GetProvisioningStats(3 * time.Hour)
	assert.Equal(t, 2, allTime.Total)
}

func Test_PerformanceTracker_slaBreachIsCountedAndAlerted(t *testing.T) {
	tracker, clock := newTestTracker()

	tracker.StartTracking("slow")
	clock.advance(ProvisioningSLA + 10*time.Second)

	alerts := tracker.GetCurrentAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertTypeProvisioningSLA, alerts[0].Type)
	assert.Equal(t, "slow", alerts[0].Subject)

	tracker.Complete("slow", true, nil)
	assert.Empty(t, tracker.GetCurrentAlerts())

	stats := tracker.GetProvisioningStats(time.Hour)
	assert.Equal(t, 1, stats.SLABreaches)
}

func Test_PerformanceTracker_duplicateStartDiscardsStaleRun(t *testing.T) {
	tracker, clock := newTestTracker()

	tracker.StartTracking("acme")
	clock.advance(30 * time.Second)
	tracker.StartTracking("acme")
	clock.advance(5 * time.Second)
	tracker.Complete("acme", true, nil)

	stats := tracker.GetProvisioningStats(time.Hour)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 5*time.Second, stats.MaxDuration)
}

func Test_PerformanceTracker_apiStats(t *testing.T) {
	tracker, clock := newTestTracker()

	tracker.TrackAPIRequest("/tenants", 100*time.Millisecond, http.StatusOK)
	tracker.TrackAPIRequest("/tenants", 300*time.Millisecond, http.StatusInternalServerError)
	tracker.TrackAPIRequest("/tenants/{id}", 6*time.Second, http.StatusOK)

	stats := tracker.GetAPIStats()
	require.Len(t, stats, 2)

	assert.Equal(t, "/tenants", stats[0].Endpoint)
	assert.Equal(t, 2, stats[0].Count)
	assert.Equal(t, 1, stats[0].ErrorCount)
	assert.Equal(t, 0, stats[0].SlowCount)
	assert.Equal(t, 200*time.Millisecond, stats[0].AvgDuration)
	assert.Equal(t, 200*time.Millisecond, stats[0].MedianDuration)
	assert.Equal(t, 100*time.Millisecond, stats[0].MinDuration)
	assert.Equal(t, 300*time.Millisecond, stats[0].MaxDuration)

	assert.Equal(t, "/tenants/{id}", stats[1].Endpoint)
	assert.Equal(t, 1, stats[1].SlowCount)

	// Samples older than an hour fall out of the stats.
	clock.advance(2 * time.Hour)
	assert.Empty(t, tracker.GetAPIStats())
}

func Test_PerformanceTracker_slowEndpointAlert(t *testing.T) {
	tracker, _ := newTestTracker()

	for i := 0; i < slowCallAlertCount; i++ {
		tracker.TrackAPIRequest("/tenants", 6*time.Second, http.StatusOK)
	}

	alerts := tracker.GetCurrentAlerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertTypeSlowEndpoint, alerts[0].Type)
	assert.Equal(t, "/tenants", alerts[0].Subject)
}

func Test_PerformanceTracker_healthStatus(t *testing.T) {
	tracker, clock := newTestTracker()

	health := tracker.GetHealthStatus()
	assert.Equal(t, "healthy", health.Status)
	assert.Empty(t, health.ActiveAlerts)

	tracker.StartTracking("stuck")
	clock.advance(ProvisioningSLA + time.Second)

	health = tracker.GetHealthStatus()
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, 1, health.InFlight)
	require.Len(t, health.ActiveAlerts, 1)
}

func Test_PerformanceTracker_completedHistoryIsBounded(t *testing.T) {
	tracker, clock := newTestTracker()

	for i := 0; i < completedCapacity+50; i++ {
		tracker.StartTracking("tenant")
		clock.advance(time.Millisecond)
		tracker.Complete("tenant", true, nil)
	}

	stats := tracker.GetProvisioningStats(time.Hour)
	assert.Equal(t, completedCapacity, stats.Total)
}
