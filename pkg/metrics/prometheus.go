package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Settlement kinds used as label values.
const (
	KindPractice   = "practice"
	KindTournament = "tournament"
)

// Manager owns every Prometheus metric for the ratings store.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	deltaBuckets   []float64
	constLabels    map[string]string
	registry       *prometheus.Registry

	// Roster activity
	registrations    prometheus.Counter
	settlements      *prometheus.CounterVec
	settlementErrors *prometheus.CounterVec
	ratingDelta      *prometheus.HistogramVec
	imports          prometheus.Counter
	exports          prometheus.Counter
	clears           prometheus.Counter

	// Roster shape
	participants        prometheus.Gauge
	visibleParticipants prometheus.Gauge
	averageRating       prometheus.Gauge

	// Persistence
	persistLatency prometheus.Histogram

	errorRateByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager. Without WithPrometheusRegistry it
// registers on a fresh private registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "elotrack",
		subsystem:      "ratings",
		latencyBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		deltaBuckets:   []float64{-200, -100, -50, -25, -10, 0, 10, 25, 50, 100, 200},
		constLabels:    map[string]string{},
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one block per metric
	auto := promauto.With(m.registry)

	m.registrations = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "registrations_total",
		Help:        "Total number of participants registered or overwritten",
		ConstLabels: m.constLabels,
	})

	m.settlements = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "settlements_total",
			Help:        "Total number of settled matches by kind",
			ConstLabels: m.constLabels,
		},
		[]string{"kind"},
	)

	m.settlementErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "settlement_errors_total",
			Help:        "Total number of rejected settlements by kind and reason",
			ConstLabels: m.constLabels,
		},
		[]string{"kind", "reason"},
	)

	m.ratingDelta = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "rating_delta",
			Help:        "Rating change applied per participant per settlement",
			Buckets:     m.deltaBuckets,
			ConstLabels: m.constLabels,
		},
		[]string{"kind"},
	)

	m.imports = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "imports_total",
		Help:        "Total number of roster imports",
		ConstLabels: m.constLabels,
	})

	m.exports = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "exports_total",
		Help:        "Total number of roster exports",
		ConstLabels: m.constLabels,
	})

	m.clears = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "clears_total",
		Help:        "Total number of confirmed roster wipes",
		ConstLabels: m.constLabels,
	})

	m.participants = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "participants",
		Help:        "Number of rostered participants, graduated included",
		ConstLabels: m.constLabels,
	})

	m.visibleParticipants = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "visible_participants",
		Help:        "Number of participants in the last listing",
		ConstLabels: m.constLabels,
	})

	m.averageRating = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "average_rating",
		Help:        "Mean rating over all participants at the last tournament settlement",
		ConstLabels: m.constLabels,
	})

	m.persistLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "persist_latency_milliseconds",
		Help:        "Latency of writing the roster to the backend in milliseconds",
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	})

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component",
			ConstLabels: m.constLabels,
		},
		[]string{"component", "error_type"},
	)
}

// Registry returns the registry the manager's metrics live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// WriteText renders every metric on the manager's registry in the text
// exposition format.
func (m *Manager) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrGatherFailed, err)
	}
	return writeFamilies(w, families)
}

func writeFamilies(w io.Writer, families []*dto.MetricFamily) error {
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrWriteFailed, mf.GetName(), err)
		}
	}
	return nil
}

// RecordRegistration increments the registrations counter.
func RecordRegistration() {
	globalManager.registrations.Inc()
}

// RecordSettlement increments the settlements counter for kind.
func RecordSettlement(kind string) {
	globalManager.settlements.WithLabelValues(kind).Inc()
}

// RecordSettlementError increments the settlement error counter.
func RecordSettlementError(kind, reason string) {
	globalManager.settlementErrors.WithLabelValues(kind, reason).Inc()
}

// RecordRatingDelta observes the rating change applied to one participant.
func RecordRatingDelta(kind string, delta float64) {
	globalManager.ratingDelta.WithLabelValues(kind).Observe(delta)
}

// RecordImport increments the imports counter.
func RecordImport() {
	globalManager.imports.Inc()
}

// RecordExport increments the exports counter.
func RecordExport() {
	globalManager.exports.Inc()
}

// RecordClear increments the clears counter.
func RecordClear() {
	globalManager.clears.Inc()
}

// UpdateParticipants sets the participant count.
func UpdateParticipants(count int) {
	globalManager.participants.Set(float64(count))
}

// UpdateVisibleParticipants sets the size of the last listing.
func UpdateVisibleParticipants(count int) {
	globalManager.visibleParticipants.Set(float64(count))
}

// UpdateAverageRating sets the average rating gauge.
func UpdateAverageRating(avg float64) {
	globalManager.averageRating.Set(avg)
}

// RecordPersistLatency records backend write latency in milliseconds.
func RecordPersistLatency(latencyMs float64) {
	globalManager.persistLatency.Observe(latencyMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteText renders the global registry in the text exposition format.
func WriteText(w io.Writer) error {
	return globalManager.WriteText(w)
}
