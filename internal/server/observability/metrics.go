// Package observability holds the Prometheus metrics and health probes of
// the auth server.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so services can be built without a registry in tests.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	LoginsTotal          *prometheus.CounterVec
	LogoutsTotal         *prometheus.CounterVec
	RegistrationsTotal   *prometheus.CounterVec
	GuardRejectionsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on registry.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volunteerhub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "volunteerhub_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volunteerhub_auth_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		LogoutsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volunteerhub_auth_logouts_total",
				Help: "Logout attempts by outcome",
			},
			[]string{"outcome"},
		),
		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volunteerhub_auth_registrations_total",
				Help: "Registrations by outcome",
			},
			[]string{"outcome"},
		),
		GuardRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volunteerhub_auth_guard_rejections_total",
				Help: "Requests rejected by an authorization guard",
			},
			[]string{"guard", "reason"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginsTotal,
		m.LogoutsTotal,
		m.RegistrationsTotal,
		m.GuardRejectionsTotal,
	)

	return m
}

func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLogout(outcome string) {
	if m == nil {
		return
	}
	m.LogoutsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.RegistrationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGuardRejection(guard, reason string) {
	if m == nil {
		return
	}
	m.GuardRejectionsTotal.WithLabelValues(guard, reason).Inc()
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// routeLabel uses the mux path template so ids in paths do not explode the
// label space.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments requests. Install it with Router.Use so
// the matched route is known.
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes registry in the Prometheus text format.
func Handler(registry prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
