// Package health exposes the /api/healthz and /api/readyz HTTP handlers.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/parleyhq/parley/internal/api/respond"
	"github.com/parleyhq/parley/internal/version"
)

// Pinger is implemented by anything that can check a downstream dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for the health and ready endpoints.
type Handler struct {
	db        Pinger
	startTime time.Time
}

// New creates a Handler. db may be nil during startup before the pool is
// established; in that case /readyz will return 503 immediately.
func New(db Pinger) *Handler {
	return &Handler{db: db, startTime: time.Now()}
}

type healthBody struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	BuildDate     string `json:"build_date"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// ServeHealth handles GET /api/healthz. Liveness only; it never touches the
// database.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, healthBody{
		Status:        "ok",
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.Date,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	})
}

// ServeReady handles GET /api/readyz.
// Returns 200 when the database is reachable; 503 otherwise.
func (h *Handler) ServeReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		respond.Error(w, http.StatusServiceUnavailable,
			respond.KindInternal, "database connection is not initialised")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		respond.Error(w, http.StatusServiceUnavailable,
			respond.KindInternal, "database is unreachable: "+err.Error())
		return
	}

	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ServeRoot handles GET /. It is a plain service banner for humans and load
// balancers poking the root path.
func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{
		"service": "parley",
		"version": version.Version,
		"status":  "ok",
	})
}
