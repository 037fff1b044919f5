package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthChecker answers liveness and readiness probes. Either dependency may
// be nil when the deployment does not use it.
type HealthChecker struct {
	db    *sql.DB
	redis *redis.Client
}

func NewHealthChecker(db *sql.DB, redis *redis.Client) *HealthChecker {
	return &HealthChecker{db: db, redis: redis}
}

// HealthStatus is the readiness response body.
type HealthStatus struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Liveness always answers 200 "ok" while the process serves requests.
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readiness pings the dependencies and answers 503 if any is down.
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

// Check pings every configured dependency.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{Status: StatusHealthy, Dependencies: map[string]string{}}

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			status.Dependencies["database"] = StatusUnhealthy
			status.Status = StatusUnhealthy
		} else {
			status.Dependencies["database"] = StatusHealthy
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			status.Dependencies["redis"] = StatusUnhealthy
			status.Status = StatusUnhealthy
		} else {
			status.Dependencies["redis"] = StatusHealthy
		}
	}

	return status
}
