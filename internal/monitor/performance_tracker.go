package monitor

import (
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// ProvisioningSLA is the target wall-clock time for a full tenant
	// provisioning run. Runs still in flight past it raise an alert.
	ProvisioningSLA = 90 * time.Second

	// SlowRequestThreshold marks an API call as slow for alerting purposes.
	SlowRequestThreshold = 5 * time.Second

	// slowCallAlertCount is how many slow calls an endpoint needs within the
	// trailing hour before it is alerted on.
	slowCallAlertCount = 10

	completedCapacity = 500
	apiSampleCapacity = 5000
)

type StepRecord struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
}

type ProvisioningRecord struct {
	Subdomain   string        `json:"subdomain"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration"`
	Success     bool          `json:"success"`
	Error       string        `json:"error,omitempty"`
	Steps       []StepRecord  `json:"steps"`
}

type apiSample struct {
	endpoint   string
	duration   time.Duration
	statusCode int
	at         time.Time
}

type ProvisioningStats struct {
	Window         time.Duration `json:"window"`
	Total          int           `json:"total"`
	Succeeded      int           `json:"succeeded"`
	Failed         int           `json:"failed"`
	SuccessRate    float64       `json:"success_rate"`
	AvgDuration    time.Duration `json:"avg_duration"`
	MedianDuration time.Duration `json:"median_duration"`
	MinDuration    time.Duration `json:"min_duration"`
	MaxDuration    time.Duration `json:"max_duration"`
	InFlight       int           `json:"in_flight"`
	SLABreaches    int           `json:"sla_breaches"`
}

type EndpointStats struct {
	Endpoint       string        `json:"endpoint"`
	Count          int           `json:"count"`
	ErrorCount     int           `json:"error_count"`
	SlowCount      int           `json:"slow_count"`
	AvgDuration    time.Duration `json:"avg_duration"`
	MedianDuration time.Duration `json:"median_duration"`
	MinDuration    time.Duration `json:"min_duration"`
	MaxDuration    time.Duration `json:"max_duration"`
}

type Alert struct {
	Type    string    `json:"type"`
	Subject string    `json:"subject"`
	Message string    `json:"message"`
	Since   time.Time `json:"since"`
}

const (
	AlertTypeProvisioningSLA = "provisioning_sla"
	AlertTypeSlowEndpoint    = "slow_endpoint"
)

const (
	HealthStatusHealthy  = "healthy"
	HealthStatusDegraded = "degraded"
)

type HealthStatus struct {
	Status       string  `json:"status"`
	InFlight     int     `json:"in_flight"`
	ActiveAlerts []Alert `json:"active_alerts"`
}

// PerformanceTracker keeps an in-memory account of provisioning runs and API
// call timings. All state is process-local and bounded; a restart starts the
// tracker empty.
type PerformanceTracker struct {
	mu         sync.Mutex
	nowFunc    func() time.Time
	inFlight   map[string]*ProvisioningRecord
	completed  []*ProvisioningRecord
	apiSamples []apiSample
}

func NewPerformanceTracker() *PerformanceTracker {
	return &PerformanceTracker{
		nowFunc:  time.Now,
		inFlight: map[string]*ProvisioningRecord{},
	}
}

// StartTracking begins a provisioning run for the subdomain. An already
// tracked run for the same subdomain is discarded with a warning, which only
// happens when a previous run never reached Complete.
func (t *PerformanceTracker) StartTracking(subdomain string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.inFlight[subdomain]; exists {
		log.WithField("subdomain", subdomain).Warn("discarding stale provisioning run for subdomain")
	}
	t.inFlight[subdomain] = &ProvisioningRecord{
		Subdomain: subdomain,
		StartedAt: t.nowFunc(),
	}
}

// RecordStep attaches a step timing and outcome to the in-flight run for the
// subdomain. Steps recorded without a matching StartTracking are dropped.
func (t *PerformanceTracker) RecordStep(subdomain, step string, duration time.Duration, stepErr error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, exists := t.inFlight[subdomain]
	if !exists {
		log.WithField("subdomain", subdomain).Warn("step recorded for untracked provisioning run")
		return
	}
	sr := StepRecord{Name: step, Duration: duration, Success: stepErr == nil}
	if stepErr != nil {
		sr.Error = stepErr.Error()
	}
	rec.Steps = append(rec.Steps, sr)
}

// Complete finalizes the in-flight run for the subdomain and moves it into
// the bounded completed history. cause carries the failure of an unsuccessful
// run and is nil otherwise.
func (t *PerformanceTracker) Complete(subdomain string, success bool, cause error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, exists := t.inFlight[subdomain]
	if !exists {
		return
	}
	delete(t.inFlight, subdomain)

	now := t.nowFunc()
	rec.CompletedAt = &now
	rec.Duration = now.Sub(rec.StartedAt)
	rec.Success = success
	if cause != nil {
		rec.Error = cause.Error()
	}

	if rec.Duration > ProvisioningSLA {
		log.WithFields(log.Fields{
			"subdomain": subdomain,
			"duration":  rec.Duration.String(),
		}).Warnf("tenant provisioning exceeded the %s target", ProvisioningSLA)
	}

	t.completed = append(t.completed, rec)
	if len(t.completed) > completedCapacity {
		t.completed = t.completed[len(t.completed)-completedCapacity:]
	}
}

// TrackAPIRequest records a single handled API request for endpoint stats and
// slow-endpoint alerting.
func (t *PerformanceTracker) TrackAPIRequest(endpoint string, duration time.Duration, statusCode int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.apiSamples = append(t.apiSamples, apiSample{
		endpoint:   endpoint,
		duration:   duration,
		statusCode: statusCode,
		at:         t.nowFunc(),
	})
	if len(t.apiSamples) > apiSampleCapacity {
		t.apiSamples = t.apiSamples[len(t.apiSamples)-apiSampleCapacity:]
	}
}

// GetProvisioningStats summarizes the completed runs whose completion falls
// within the trailing window.
func (t *PerformanceTracker) GetProvisioningStats(window time.Duration) ProvisioningStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	cutoff := now.Add(-window)

	stats := ProvisioningStats{Window: window, InFlight: len(t.inFlight)}
	var totalDuration time.Duration
	var durations []time.Duration
	for _, rec := range t.completed {
		if rec.CompletedAt == nil || rec.CompletedAt.Before(cutoff) {
			continue
		}
		stats.Total++
		if rec.Success {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
		totalDuration += rec.Duration
		durations = append(durations, rec.Duration)
		if rec.Duration > ProvisioningSLA {
			stats.SLABreaches++
		}
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.Total)
		stats.AvgDuration = totalDuration / time.Duration(stats.Total)
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
		stats.MedianDuration = medianDuration(durations)
		stats.MinDuration = durations[0]
		stats.MaxDuration = durations[len(durations)-1]
	}
	return stats
}

// medianDuration expects a sorted slice; an even count averages the middle
// pair.
func medianDuration(sorted []time.Duration) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// GetAPIStats summarizes per-endpoint request timings over the trailing hour.
func (t *PerformanceTracker) GetAPIStats() []EndpointStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.nowFunc().Add(-time.Hour)
	byEndpoint := map[string]*EndpointStats{}
	totals := map[string]time.Duration{}
	durations := map[string][]time.Duration{}
	order := []string{}

	for _, s := range t.apiSamples {
		if s.at.Before(cutoff) {
			continue
		}
		es, ok := byEndpoint[s.endpoint]
		if !ok {
			es = &EndpointStats{Endpoint: s.endpoint}
			byEndpoint[s.endpoint] = es
			order = append(order, s.endpoint)
		}
		es.Count++
		if s.statusCode >= 500 {
			es.ErrorCount++
		}
		if s.duration > SlowRequestThreshold {
			es.SlowCount++
		}
		totals[s.endpoint] += s.duration
		durations[s.endpoint] = append(durations[s.endpoint], s.duration)
	}

	result := make([]EndpointStats, 0, len(order))
	for _, endpoint := range order {
		es := byEndpoint[endpoint]
		es.AvgDuration = totals[endpoint] / time.Duration(es.Count)
		ds := durations[endpoint]
		sort.Slice(ds, func(i, j int) bool { return ds[i] < ds[j] })
		es.MedianDuration = medianDuration(ds)
		es.MinDuration = ds[0]
		es.MaxDuration = ds[len(ds)-1]
		result = append(result, *es)
	}
	return result
}

// GetCurrentAlerts returns in-flight runs past the provisioning target and
// endpoints accumulating slow calls.
func (t *PerformanceTracker) GetCurrentAlerts() []Alert {
	alerts := []Alert{}

	t.mu.Lock()
	now := t.nowFunc()
	for subdomain, rec := range t.inFlight {
		if elapsed := now.Sub(rec.StartedAt); elapsed > ProvisioningSLA {
			alerts = append(alerts, Alert{
				Type:    AlertTypeProvisioningSLA,
				Subject: subdomain,
				Message: "provisioning has been running for " + elapsed.Round(time.Second).String(),
				Since:   rec.StartedAt,
			})
		}
	}
	t.mu.Unlock()

	for _, es := range t.GetAPIStats() {
		if es.SlowCount >= slowCallAlertCount {
			alerts = append(alerts, Alert{
				Type:    AlertTypeSlowEndpoint,
				Subject: es.Endpoint,
				Message: "endpoint accumulated slow responses over the last hour",
				Since:   now.Add(-time.Hour),
			})
		}
	}
	return alerts
}

// GetHealthStatus rolls the current alerts into a coarse healthy/degraded
// verdict.
func (t *PerformanceTracker) GetHealthStatus() HealthStatus {
	alerts := t.GetCurrentAlerts()

	t.mu.Lock()
	inFlight := len(t.inFlight)
	t.mu.Unlock()

	status := HealthStatusHealthy
	if len(alerts) > 0 {
		status = HealthStatusDegraded
	}
	return HealthStatus{Status: status, InFlight: inFlight, ActiveAlerts: alerts}
}
