package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/padfetch/internal/version"
)

// Operation label values for fetch metrics.
const (
	OpProbe = "probe"
	OpLoad  = "load"
)

// Outcome label values for fetch metrics.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

type FetchMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight     prometheus.Gauge
	fetchTotal   *prometheus.CounterVec
	fetchDur     *prometheus.HistogramVec
	payloadBytes prometheus.Histogram
	buildInfo    *prometheus.GaugeVec
}

// New returns a fresh registry + standard collectors + fetch metrics.
// Labels are bounded (operation, outcome) to avoid URL cardinality blowups.
func New() *FetchMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &FetchMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fetch_inflight_requests",
			Help: "Current number of in-flight transfers",
		}),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fetch_requests_total",
			Help: "Total transfers by operation and outcome",
		}, []string{"operation", "outcome"}),
		fetchDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fetch_duration_seconds",
			Help:    "Transfer duration by operation",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		}, []string{"operation"}),
		payloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fetch_payload_size_bytes",
			Help:    "Payload size of completed transfers",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216, 52428800},
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"}),
	}
	reg.MustRegister(
		m.inflight,
		m.fetchTotal,
		m.fetchDur,
		m.payloadBytes,
		m.buildInfo,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *FetchMetrics) Handler() http.Handler {
	return m.handler
}

// set once at startup.
func (m *FetchMetrics) SetBuildInfoFromVersion(vi *version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":         vi.AppName,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_id":    vi.BuildId,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   dirty,
	}).Set(1)
}

func (m *FetchMetrics) IncInflight() { m.inflight.Inc() }
func (m *FetchMetrics) DecInflight() { m.inflight.Dec() }

// ObserveFetch records one completed transfer. bytes is only observed for
// successful transfers so failed attempts don't skew the size distribution.
func (m *FetchMetrics) ObserveFetch(operation, outcome string, dur time.Duration, bytes int64) {
	m.fetchTotal.WithLabelValues(operation, outcome).Inc()
	m.fetchDur.WithLabelValues(operation).Observe(dur.Seconds())
	if outcome == OutcomeOK {
		m.payloadBytes.Observe(float64(bytes))
	}
}
