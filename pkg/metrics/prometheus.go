// Package metrics provides Prometheus metrics for the streakd engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager manages all Prometheus metrics for the streakd service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion metrics - outcome of every submitted event
	eventsAccepted  prometheus.Counter
	eventsDuplicate prometheus.Counter
	eventsInvalid   prometheus.Counter

	// Streak metrics
	streaksExtended   prometheus.Counter
	streaksBroken     prometheus.Counter
	streaksNormalized prometheus.Counter

	// Achievement metrics
	tiersUnlocked prometheus.Counter

	// Rebuild metrics - bulk flows (load, import, delete, drift recovery)
	rebuilds        prometheus.Counter
	rebuildDuration prometheus.Histogram

	// Persistence metrics
	saveQueueDepth prometheus.Gauge
	saveErrors     prometheus.Counter
	savesWritten   prometheus.Counter

	// Publish metrics
	publishSent      prometheus.Counter
	publishDebounced prometheus.Counter
	publishErrors    prometheus.Counter

	// Session metrics
	guestSessions     prometheus.Counter
	guestRecoveries   prometheus.Counter
	trackedGames      prometheus.Gauge
	trackedEventCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "streakd",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_accepted_total",
		Help:      "Total number of completion events accepted into the log",
	})

	m.eventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_duplicate_total",
		Help:      "Total number of submissions rejected as duplicates",
	})

	m.eventsInvalid = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_invalid_total",
		Help:      "Total number of submissions rejected by validation",
	})

	m.streaksExtended = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "streaks_extended_total",
		Help:      "Total number of streak extensions or starts",
	})

	m.streaksBroken = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "streaks_broken_total",
		Help:      "Total number of streaks broken by incomplete events or gaps",
	})

	m.streaksNormalized = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "streaks_normalized_total",
		Help:      "Total number of stale streaks broken by the normalizer",
	})

	m.tiersUnlocked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "achievement_tiers_unlocked_total",
		Help:      "Total number of achievement tiers unlocked",
	})

	m.rebuilds = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rebuilds_total",
		Help:      "Total number of full aggregate rebuilds",
	})

	m.rebuildDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rebuild_duration_milliseconds",
		Help:      "Histogram of full rebuild duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.saveQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "save_queue_depth",
		Help:      "Current number of pending background saves",
	})

	m.saveErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "save_errors_total",
		Help:      "Total number of failed persistence writes",
	})

	m.savesWritten = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "saves_written_total",
		Help:      "Total number of successful persistence writes",
	})

	m.publishSent = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publish_sent_total",
		Help:      "Total number of summaries handed to the publisher",
	})

	m.publishDebounced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publish_debounced_total",
		Help:      "Total number of summaries dropped by the per-game cool-down",
	})

	m.publishErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publish_errors_total",
		Help:      "Total number of failed publish calls (best effort, logged only)",
	})

	m.guestSessions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "guest_sessions_total",
		Help:      "Total number of guest sessions entered",
	})

	m.guestRecoveries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "guest_recoveries_total",
		Help:      "Total number of interrupted guest sessions recovered at startup",
	})

	m.trackedGames = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_games",
		Help:      "Number of games with a streak aggregate",
	})

	m.trackedEventCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_events",
		Help:      "Number of completion events in the in-memory log",
	})
}

// Package-level helpers against the global manager.

func RecordEventAccepted() {
	globalManager.eventsAccepted.Inc()
}

func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

func RecordEventInvalid() {
	globalManager.eventsInvalid.Inc()
}

func RecordStreakExtended() {
	globalManager.streaksExtended.Inc()
}

func RecordStreakBroken() {
	globalManager.streaksBroken.Inc()
}

func RecordStreakNormalized() {
	globalManager.streaksNormalized.Inc()
}

func RecordTierUnlocked() {
	globalManager.tiersUnlocked.Inc()
}

func RecordRebuild() {
	globalManager.rebuilds.Inc()
}

func RecordRebuildDuration(latencyMs float64) {
	globalManager.rebuildDuration.Observe(latencyMs)
}

func UpdateSaveQueueDepth(depth int) {
	globalManager.saveQueueDepth.Set(float64(depth))
}

func RecordSaveError() {
	globalManager.saveErrors.Inc()
}

func RecordSaveWritten() {
	globalManager.savesWritten.Inc()
}

func RecordPublishSent() {
	globalManager.publishSent.Inc()
}

func RecordPublishDebounced() {
	globalManager.publishDebounced.Inc()
}

func RecordPublishError() {
	globalManager.publishErrors.Inc()
}

func RecordGuestSession() {
	globalManager.guestSessions.Inc()
}

func RecordGuestRecovery() {
	globalManager.guestRecoveries.Inc()
}

func UpdateTrackedGames(count int) {
	globalManager.trackedGames.Set(float64(count))
}

func UpdateTrackedEvents(count int) {
	globalManager.trackedEventCount.Set(float64(count))
}

// GetRegistry returns the custom registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler returns an HTTP handler exposing the custom registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}
