package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apiMiddleware "github.com/sebaskun/taskscheduler/internal/api/middleware"
	"github.com/sebaskun/taskscheduler/internal/logger"
	"github.com/sebaskun/taskscheduler/internal/scheduler"
)

// AdminHandler serves the read-only observability surface over a
// Supervisor: status, worker slots, and health. It has nothing to
// mutate; submission, cancellation, and scaling stay in-process only.
type AdminHandler struct {
	supervisor *scheduler.Supervisor
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(supervisor *scheduler.Supervisor) *AdminHandler {
	return &AdminHandler{supervisor: supervisor}
}

// Status handles GET /admin/status, returning worker and task counts.
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	report := h.supervisor.Status()

	tasks := make(map[string]int, len(report.Tasks))
	for status, count := range report.Tasks {
		tasks[status.String()] = count
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"workers": map[string]interface{}{
			"total": report.Workers.Total,
			"alive": report.Workers.Alive,
		},
		"tasks": tasks,
	})
}

// ListWorkers handles GET /admin/workers. This route is gated by
// RequireRole("admin") when auth is enabled, since slot detail is
// privileged; the requesting user is logged for audit purposes.
func (h *AdminHandler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	if claims := apiMiddleware.GetUser(r.Context()); claims != nil {
		logger.Info().Str("user_id", claims.UserID).Msg("admin workers list requested")
	}

	report := h.supervisor.Status()
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"total": report.Workers.Total,
		"alive": report.Workers.Alive,
	})
}

// GetWorker handles GET /admin/workers/{workerID}. It echoes the
// requested id back; it does not look the id up among the pool's slots,
// so an unknown id also gets a 200 response.
func (h *AdminHandler) GetWorker(w http.ResponseWriter, r *http.Request) {
	workerID := chi.URLParam(r, "workerID")
	if workerID == "" {
		h.respondError(w, http.StatusBadRequest, "worker ID is required")
		return
	}

	if claims := apiMiddleware.GetUser(r.Context()); claims != nil {
		logger.Info().Str("user_id", claims.UserID).Str("worker_id", workerID).Msg("admin worker lookup")
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"worker_id": workerID,
	})
}

// HealthCheck handles GET /admin/health. It always reports "healthy":
// it does not check whether the Supervisor has been shut down, and
// there is no external dependency to ping in the default (memory)
// event backend.
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
	})
}

func (h *AdminHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *AdminHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}
