package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

func PrometheusMetrics() map[MetricTag]prometheus.Collector {
	metrics := make(map[MetricTag]prometheus.Collector)

	for tag, summaryVec := range SummaryVecMetrics {
		metrics[tag] = summaryVec
	}

	for tag, counter := range CounterMetrics {
		metrics[tag] = counter
	}

	for tag, histogramVec := range HistogramVecMetrics {
		metrics[tag] = histogramVec
	}

	for tag, counterVec := range CounterVecMetrics {
		metrics[tag] = counterVec
	}

	return metrics
}

var SummaryVecMetrics = map[MetricTag]*prometheus.SummaryVec{
	HTTPRequestDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "pms", Subsystem: "http", Name: string(HTTPRequestDurationTag),
		Help: "HTTP requests durations, sliding window = 10m",
	},
		[]string{"status", "route", "method"},
	),
	SuccessfulQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "pms", Subsystem: "db", Name: string(SuccessfulQueryDurationTag),
		Help: "Successful DB query durations",
	},
		[]string{"query_type"},
	),
	FailureQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "pms", Subsystem: "db", Name: string(FailureQueryDurationTag),
		Help: "Failure DB query durations",
	},
		[]string{"query_type"},
	),
}

var CounterMetrics = map[MetricTag]prometheus.Counter{
	TenantHeartbeatsTag: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pms", Subsystem: "tenant", Name: string(TenantHeartbeatsTag),
		Help: "A counter of tenant heartbeat registrations",
	}),
	TenantResolutionMissesTag: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "pms", Subsystem: "tenant", Name: string(TenantResolutionMissesTag),
		Help: "A counter of requests that could not be resolved to a tenant",
	}),
}

var HistogramVecMetrics = map[MetricTag]*prometheus.HistogramVec{
	ProvisioningDurationTag: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pms", Subsystem: "provisioning", Name: string(ProvisioningDurationTag),
		Help: "A histogram of tenant provisioning durations",
	},
		ProvisioningLabelNames,
	),
}

var CounterVecMetrics = map[MetricTag]*prometheus.CounterVec{
	TenantsProvisionedTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pms", Subsystem: "provisioning", Name: string(TenantsProvisionedTag),
		Help: "A counter of tenant provisioning attempts by outcome",
	},
		ProvisioningLabelNames,
	),
}
