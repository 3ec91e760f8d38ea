// Package metrics provides Prometheus metrics for trendlens.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts explanation cache reads.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendlens",
			Name:      "cache_lookups_total",
			Help:      "Total number of cache lookups",
		},
		[]string{"namespace", "result"},
	)

	// Generations counts explanation generations by outcome.
	Generations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendlens",
			Name:      "generations_total",
			Help:      "Total number of explanation generations",
		},
		[]string{"status"},
	)

	// GenerationDuration measures explanation generation duration.
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "trendlens",
			Name:      "generation_duration_seconds",
			Help:      "Duration of explanation generations in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
	)

	// SharedGenerations counts callers that joined an in-flight generation.
	SharedGenerations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "trendlens",
			Name:      "generations_shared_total",
			Help:      "Total number of explanation requests served by an in-flight generation",
		},
	)

	// BackgroundTasks counts background generation tasks by outcome.
	BackgroundTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendlens",
			Name:      "background_tasks_total",
			Help:      "Total number of background generation tasks",
		},
		[]string{"kind", "status"},
	)

	// BackgroundTasksRunning tracks tasks not yet finished.
	BackgroundTasksRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "trendlens",
			Name:      "background_tasks_running",
			Help:      "Number of background generation tasks currently running",
		},
	)

	// Syntheses counts state-of-world synthesis requests by outcome.
	Syntheses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendlens",
			Name:      "syntheses_total",
			Help:      "Total number of synthesis requests",
		},
		[]string{"status"},
	)

	// ConclusionExtractions counts conclusion extraction attempts by matched strategy.
	ConclusionExtractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendlens",
			Name:      "conclusion_extractions_total",
			Help:      "Total number of conclusion extractions",
		},
		[]string{"strategy", "result"},
	)

	// EventsPublished counts explanation events sent to the bus.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "trendlens",
			Name:      "events_published_total",
			Help:      "Total number of published explanation events",
		},
		[]string{"status"},
	)

	// WebsocketClients tracks connected event stream clients.
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "trendlens",
			Name:      "websocket_clients",
			Help:      "Number of connected explanation stream clients",
		},
	)
)

// RecordCacheLookup records a cache read.
func RecordCacheLookup(namespace, result string) {
	CacheLookups.WithLabelValues(namespace, result).Inc()
}

// RecordGeneration records a finished explanation generation.
func RecordGeneration(status string, duration float64) {
	Generations.WithLabelValues(status).Inc()
	GenerationDuration.Observe(duration)
}

// RecordTaskStarted marks a background task as running.
func RecordTaskStarted() {
	BackgroundTasksRunning.Inc()
}

// RecordTaskFinished records a background task outcome.
func RecordTaskFinished(kind, status string) {
	BackgroundTasksRunning.Dec()
	BackgroundTasks.WithLabelValues(kind, status).Inc()
}

// RecordSynthesis records a synthesis outcome.
func RecordSynthesis(status string) {
	Syntheses.WithLabelValues(status).Inc()
}

// RecordConclusion records a conclusion extraction attempt.
func RecordConclusion(strategy string, ok bool) {
	if strategy == "" {
		strategy = "none"
	}
	result := "empty"
	if ok {
		result = "extracted"
	}
	ConclusionExtractions.WithLabelValues(strategy, result).Inc()
}

// RecordEventPublished records an event publish attempt.
func RecordEventPublished(ok bool) {
	status := "success"
	if !ok {
		status = "error"
	}
	EventsPublished.WithLabelValues(status).Inc()
}
