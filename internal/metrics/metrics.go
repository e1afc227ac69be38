// Package metrics provides Prometheus metrics for roster resolution,
// collaboration rooms and document lookups.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors. A nil *Metrics, or one built
// with a nil registerer, records nothing.
type Metrics struct {
	enabled bool

	// Directory metrics
	resolutionsTotal *prometheus.CounterVec
	fetchDuration    prometheus.Histogram

	// Room metrics
	roomMountsTotal *prometheus.CounterVec
	roomsActive     prometheus.Gauge

	// Document metrics
	documentFetchesTotal *prometheus.CounterVec

	// Session metrics
	sessionFailuresTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{enabled: reg != nil}
	if !m.enabled {
		return m
	}
	factory := promauto.With(reg)

	m.resolutionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "docroom_directory_resolutions_total",
		Help: "Roster resolutions by outcome",
	}, []string{"outcome"})

	m.fetchDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "docroom_directory_fetch_duration_seconds",
		Help:    "Identity directory query duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	m.roomMountsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "docroom_room_mounts_total",
		Help: "Room adapter mounts, split by whether an existing adapter was reused",
	}, []string{"reused"})

	m.roomsActive = factory.NewGauge(prometheus.GaugeOpts{
		Name: "docroom_rooms_active",
		Help: "Currently mounted room adapters",
	})

	m.documentFetchesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "docroom_document_fetches_total",
		Help: "Document batch lookups by result",
	}, []string{"result"})

	m.sessionFailuresTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "docroom_session_failures_total",
		Help: "Rejected session credentials by reason",
	}, []string{"reason"})

	return m
}

func (m *Metrics) on() bool {
	return m != nil && m.enabled
}

// RecordResolution records the outcome of one roster resolution.
func (m *Metrics) RecordResolution(outcome string) {
	if !m.on() {
		return
	}
	m.resolutionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDirectoryFetch records how long a directory query took.
func (m *Metrics) ObserveDirectoryFetch(d time.Duration) {
	if !m.on() {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordRoomMount(reused bool) {
	if !m.on() {
		return
	}
	label := "false"
	if reused {
		label = "true"
	}
	m.roomMountsTotal.WithLabelValues(label).Inc()
}

func (m *Metrics) SetRoomsActive(n int) {
	if !m.on() {
		return
	}
	m.roomsActive.Set(float64(n))
}

func (m *Metrics) RecordDocumentFetch(err error) {
	if !m.on() {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.documentFetchesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordSessionFailure(reason string) {
	if !m.on() {
		return
	}
	m.sessionFailuresTotal.WithLabelValues(reason).Inc()
}
