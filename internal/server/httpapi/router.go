// Package httpapi is the public JSON API of the auth server: registration,
// login, logout and the guarded profile routes.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/volunteerhub/internal/logging"
	"github.com/dmitrijs2005/volunteerhub/internal/server/auth"
	"github.com/dmitrijs2005/volunteerhub/internal/server/models"
	"github.com/dmitrijs2005/volunteerhub/internal/server/observability"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RouterDeps collects what NewRouter wires together. Health, Metrics and
// Gatherer are optional.
type RouterDeps struct {
	Service  AuthAPI
	Health   *observability.HealthChecker
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
	Log      logging.Logger
}

// NewRouter builds the HTTP handler tree, wrapped for OpenTelemetry.
func NewRouter(d RouterDeps) http.Handler {
	log := d.Log
	if log == nil {
		log = logging.Nop{}
	}

	h := NewHandler(d.Service, log)
	g := NewGuards(auth.NewGuard(d.Service), d.Metrics, log)

	r := mux.NewRouter()
	r.Use(recovery(log), accessLog(log), observability.HTTPMetricsMiddleware(d.Metrics))

	if d.Health != nil {
		r.HandleFunc("/health", d.Health.Liveness).Methods(http.MethodGet)
		r.HandleFunc("/ready", d.Health.Readiness).Methods(http.MethodGet)
	}
	if d.Gatherer != nil {
		r.Handle("/metrics", observability.Handler(d.Gatherer)).Methods(http.MethodGet)
	}

	a := r.PathPrefix("/auth").Subrouter()
	a.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	a.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	a.Handle("/logout", g.Logout(http.HandlerFunc(h.Logout))).Methods(http.MethodPost)
	a.Handle("/me", g.Authenticated(http.HandlerFunc(h.Me))).Methods(http.MethodGet)

	v := r.PathPrefix("/volunteers").Subrouter()
	v.Use(g.RequireRole(models.RoleVolunteer))
	v.HandleFunc("/me", h.Profile).Methods(http.MethodGet)

	n := r.PathPrefix("/ngos").Subrouter()
	n.Use(g.RequireRole(models.RoleNGO))
	n.HandleFunc("/me", h.Profile).Methods(http.MethodGet)

	return otelhttp.NewHandler(r, "volunteerhub.http")
}
