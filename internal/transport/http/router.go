// Package httptransport is the thin HTTP layer over the scheduler registry
// and snapshot store. Handlers delegate without embedding tracking logic so
// transport concerns stay isolated.
package httptransport

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"commwatch/internal/scheduler"
	"commwatch/internal/snapshot"
)

// Handler wires subject management endpoints to the scheduler.
type Handler struct {
	registry *scheduler.Registry
	store    snapshot.Store
	log      *log.Logger
}

// NewHandler constructs the transport layer.
func NewHandler(registry *scheduler.Registry, store snapshot.Store, logger *log.Logger) *Handler {
	return &Handler{registry: registry, store: store, log: logger}
}

// NewRouter wires all endpoints. Subject management sits behind auth; health
// and metrics stay open for probes and scrapers.
func NewRouter(h *Handler, auth AuthConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return requireAuth(auth, next)
		})
		r.Post("/subjects", h.handleTrack)
		r.Get("/subjects", h.handleList)
		r.Delete("/subjects/{subjectID}", h.handleStop)
		r.Post("/subjects/{subjectID}/reactivate", h.handleReactivate)
		r.Get("/subjects/{subjectID}", h.handleStatus)
		r.Get("/subjects/{subjectID}/snapshot", h.handleSnapshot)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
