package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sebaskun/taskscheduler/internal/logger"
	"github.com/sebaskun/taskscheduler/internal/scheduler"
	"github.com/sebaskun/taskscheduler/internal/task"
)

// TaskHandler serves the read-only task surface over a Supervisor.
// There is no Create/Cancel here: submission and cancellation stay
// in-process only. A caller that wants those uses the Supervisor
// directly, not HTTP.
type TaskHandler struct {
	supervisor *scheduler.Supervisor
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(supervisor *scheduler.Supervisor) *TaskHandler {
	return &TaskHandler{supervisor: supervisor}
}

// TaskResponse is the wire shape of a task snapshot.
type TaskResponse struct {
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	Priority     int      `json:"priority"`
	Dependencies []string `json:"dependencies,omitempty"`
	Result       any      `json:"result,omitempty"`
	Error        string   `json:"error,omitempty"`
	WorkerID     string   `json:"worker_id,omitempty"`
}

func toResponse(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:           t.ID,
		Status:       t.Status.String(),
		Priority:     t.Priority,
		Dependencies: t.Dependencies,
		Result:       t.Result,
		Error:        t.Error,
		WorkerID:     t.WorkerID,
	}
}

// Get handles GET /api/v1/tasks/{taskID}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	if taskID == "" {
		h.respondError(w, http.StatusBadRequest, "task ID is required")
		return
	}

	t, err := h.supervisor.GetTask(taskID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "task not found")
		return
	}

	h.respondJSON(w, http.StatusOK, toResponse(t))
}

// ListResponse represents the response for listing tasks.
type ListResponse struct {
	Tasks      []TaskResponse `json:"tasks"`
	TotalCount int            `json:"total_count"`
}

// List handles GET /api/v1/tasks, optionally filtered by ?status=.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	snapshot := h.supervisor.Snapshot()

	statusFilter := r.URL.Query().Get("status")
	var filter *task.Status
	if statusFilter != "" {
		s := task.ParseStatus(statusFilter)
		filter = &s
	}

	tasks := make([]TaskResponse, 0, len(snapshot))
	for _, t := range snapshot {
		if filter != nil && t.Status != *filter {
			continue
		}
		tasks = append(tasks, toResponse(t))
	}

	h.respondJSON(w, http.StatusOK, ListResponse{Tasks: tasks, TotalCount: len(tasks)})
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (h *TaskHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
