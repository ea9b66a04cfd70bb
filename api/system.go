package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is a dependency whose liveness the health endpoint reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	db    Pinger
	cache Pinger
}

// NewSystemHandler creates the health and version handler. Either
// dependency may be nil.
func NewSystemHandler(db, cache Pinger) *SystemHandler {
	return &SystemHandler{db: db, cache: cache}
}

type healthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// HealthHandler fails when the database is unreachable. A cache outage only
// degrades the report since statistics fall back to the database.
func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	out := healthResponse{Status: "ok", Service: "wellbeing", Checks: map[string]string{}}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			logger.Error("health: database unreachable", slog.Any("err", err))
			out.Checks["database"] = "unavailable"
			out.Status = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			out.Checks["database"] = "ok"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			logger.Warn("health: cache unreachable", slog.Any("err", err))
			out.Checks["cache"] = "unavailable"
			if status == http.StatusOK {
				out.Status = "degraded"
			}
		} else {
			out.Checks["cache"] = "ok"
		}
	}

	writeJSON(w, out, status)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"version": version, "buildTime": buildTime}, http.StatusOK)
	}
}
