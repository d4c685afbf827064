package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studycal/internal/model"
)

const namespace = "studycal"

// Metrics holds the Prometheus collectors of the planner. Each instance
// owns its registry so several can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	Events          *prometheus.GaugeVec
	Conflicts       *prometheus.GaugeVec
	SkippedRecords  prometheus.Gauge
	TruncatedBlocks prometheus.Gauge
	Refreshes       *prometheus.CounterVec
	RefreshDuration prometheus.Histogram

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates a registry with the planner collectors plus the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Events: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "events",
				Help:      "Calendar events in the current snapshot",
			},
			[]string{"type"},
		),
		Conflicts: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "conflicts",
				Help:      "Conflict groups in the current snapshot",
			},
			[]string{"severity"},
		),
		SkippedRecords: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "skipped_records",
			Help:      "Malformed source records skipped by the last computation",
		}),
		TruncatedBlocks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "truncated_blocks",
			Help:      "Recurring blocks that hit the occurrence cap in the last computation",
		}),
		Refreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refreshes_total",
				Help:      "Planner refreshes by result",
			},
			[]string{"result"}, // changed, unchanged, error
		),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Planner refresh duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		RequestCounter: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		RequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),
	}
}

// RecordSnapshot publishes the per-type event and per-severity conflict
// counts of a freshly computed snapshot.
func (m *Metrics) RecordSnapshot(events []model.CalendarEvent, conflicts []model.Conflict, skipped, truncated int) {
	if m == nil {
		return
	}
	m.Events.Reset()
	for _, t := range []model.EventType{model.TypeSchedule, model.TypeExam, model.TypeAssignment, model.TypeStudySession} {
		m.Events.WithLabelValues(string(t)).Set(0)
	}
	for _, ev := range events {
		m.Events.WithLabelValues(string(ev.Type)).Inc()
	}

	m.Conflicts.Reset()
	for _, s := range []model.Severity{model.SeverityMinor, model.SeverityMajor, model.SeverityCritical} {
		m.Conflicts.WithLabelValues(string(s)).Set(0)
	}
	for _, c := range conflicts {
		m.Conflicts.WithLabelValues(string(c.Severity)).Inc()
	}

	m.SkippedRecords.Set(float64(skipped))
	m.TruncatedBlocks.Set(float64(truncated))
}

// RecordRefresh counts one refresh and its duration. result is one of
// "changed", "unchanged" or "error".
func (m *Metrics) RecordRefresh(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(result).Inc()
	m.RefreshDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// statusRecorder captures the response status for the request counter.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests, tracks in-flight requests and observes the
// duration per route. route is a fixed label, never the raw URL.
func (m *Metrics) Middleware(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.RequestCounter.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
