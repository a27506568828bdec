package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const ns = "automarket"

// Label values shared by callers.
const (
	SourceStorefront = "storefront"
	SourceLocal      = "local"
	SourceRemote     = "remote"

	ResultApplied    = "applied"
	ResultSuppressed = "suppressed"
	ResultFailed     = "failed"

	LoginSuccess  = "success"
	LoginLocked   = "locked"
	LoginRejected = "rejected"
	LoginNotAdmin = "not_admin"
)

type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	AnalyticsEvents *prometheus.CounterVec
	LoginAttempts   *prometheus.CounterVec

	Lockouts           prometheus.Counter
	SessionExpirations prometheus.Counter
	DailyResets        prometheus.Counter
	ActiveConsoles     prometheus.Gauge

	RealtimeDropped *prometheus.CounterVec
	CleanupRemoved  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		AnalyticsEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "analytics", Name: "events_total",
			Help: "Car view and contact click events by source and outcome.",
		}, []string{"event_type", "source", "result"}),
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "console", Name: "login_attempts_total",
			Help: "Admin console login attempts by result.",
		}, []string{"result"}),
		Lockouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "console", Name: "lockouts_total",
			Help: "Consoles locked after too many failed logins.",
		}),
		SessionExpirations: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "console", Name: "session_expirations_total",
			Help: "Admin sessions ended by inactivity.",
		}),
		DailyResets: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "analytics", Name: "daily_resets_total",
			Help: "Daily counter resets performed by console schedulers.",
		}),
		ActiveConsoles: f.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: "console", Name: "open",
			Help: "Consoles currently registered.",
		}),
		RealtimeDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "realtime", Name: "dropped_total",
			Help: "Row change notifications dropped because a subscriber was full.",
		}, []string{"table"}),
		CleanupRemoved: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "cleanup", Name: "removed_total",
			Help: "Items removed by periodic cleanup tasks.",
		}, []string{"task"}),
	}
}

// NewRegistry returns a registry preloaded with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
