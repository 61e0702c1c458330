package task

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskhive/taskhive-api/internal/auth"
	"github.com/taskhive/taskhive-api/internal/httputil"
	"github.com/taskhive/taskhive-api/internal/logging"
)

// RoleStore resolves the caller's role. The token does not carry the role,
// so it is read from the store on each request that needs it.
type RoleStore interface {
	IsAdmin(ctx context.Context, id uuid.UUID) (bool, error)
}

// Handler contains HTTP handlers for task endpoints
type Handler struct {
	service *Service
	users   RoleStore
	logger  *logging.Logger
}

func NewHandler(service *Service, users RoleStore, logger *logging.Logger) *Handler {
	return &Handler{service: service, users: users, logger: logger}
}

// ChecklistItemRequest is one checklist entry in a request body.
type ChecklistItemRequest struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// CreateTaskRequest represents the task creation request body
type CreateTaskRequest struct {
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Priority      string                 `json:"priority"`
	Status        string                 `json:"status"`
	DueDate       *time.Time             `json:"due_date"`
	AssignedTo    []uuid.UUID            `json:"assigned_to"`
	Attachments   []string               `json:"attachments"`
	TodoChecklist []ChecklistItemRequest `json:"todo_checklist"`
}

// UpdateTaskRequest represents a partial task update request body
type UpdateTaskRequest struct {
	Title         *string                 `json:"title"`
	Description   *string                 `json:"description"`
	Priority      *string                 `json:"priority"`
	DueDate       *time.Time              `json:"due_date"`
	AssignedTo    []uuid.UUID             `json:"assigned_to"`
	Attachments   []string                `json:"attachments"`
	TodoChecklist *[]ChecklistItemRequest `json:"todo_checklist"`
}

// UpdateStatusRequest represents a status change request body
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateChecklistRequest represents a checklist replacement request body
type UpdateChecklistRequest struct {
	TodoChecklist []ChecklistItemRequest `json:"todo_checklist"`
}

// ListTasksResponse bundles tasks with the status summary.
type ListTasksResponse struct {
	Tasks         []*Task        `json:"tasks"`
	StatusSummary *StatusSummary `json:"status_summary"`
}

// Create handles task creation
// @Summary      Create a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        request body CreateTaskRequest true "Task details"
// @Success      201 {object} Task
// @Failure      400 {object} map[string]string "Validation error"
// @Security     BearerAuth
// @Router       /api/tasks [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), userID, CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
		DueDate:     req.DueDate,
		Attachments: req.Attachments,
		AssigneeIDs: req.AssignedTo,
		Checklist:   checklistFromRequest(req.TodoChecklist),
	})
	if err != nil {
		h.writeServiceError(w, logger, "task creation failed", err)
		return
	}

	logger.Info("task created", "task_id", created.ID)
	httputil.RespondJSON(w, created, http.StatusCreated)
}

// List handles task listing
// @Summary      List tasks
// @Description  Admins see all tasks, members their assigned ones. Optional status filter.
// @Tags         tasks
// @Produce      json
// @Param        status query string false "Filter by status"
// @Success      200 {object} ListTasksResponse
// @Security     BearerAuth
// @Router       /api/tasks [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, isAdmin, ok := h.callerRole(w, r)
	if !ok {
		return
	}

	tasks, summary, err := h.service.List(r.Context(), userID, isAdmin, r.URL.Query().Get("status"))
	if err != nil {
		h.writeServiceError(w, logger, "task listing failed", err)
		return
	}

	httputil.RespondJSON(w, ListTasksResponse{Tasks: tasks, StatusSummary: summary}, http.StatusOK)
}

// Get handles reading a single task
// @Summary      Get a task
// @Tags         tasks
// @Produce      json
// @Param        id path string true "Task ID"
// @Success      200 {object} Task
// @Failure      403 {object} map[string]string "Not a task member"
// @Failure      404 {object} map[string]string "Task not found"
// @Security     BearerAuth
// @Router       /api/tasks/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, isAdmin, ok := h.callerRole(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDFromURL(w, r)
	if !ok {
		return
	}

	t, err := h.service.Get(r.Context(), userID, isAdmin, taskID)
	if err != nil {
		h.writeServiceError(w, logger, "task read failed", err)
		return
	}

	httputil.RespondJSON(w, t, http.StatusOK)
}

// Update handles a partial task update
// @Summary      Update a task
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id path string true "Task ID"
// @Param        request body UpdateTaskRequest true "Fields to change"
// @Success      200 {object} Task
// @Security     BearerAuth
// @Router       /api/tasks/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, isAdmin, ok := h.callerRole(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDFromURL(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	in := UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Attachments: req.Attachments,
		AssigneeIDs: req.AssignedTo,
	}
	if req.TodoChecklist != nil {
		in.Checklist = checklistFromRequest(*req.TodoChecklist)
	}

	t, err := h.service.Update(r.Context(), userID, isAdmin, taskID, in)
	if err != nil {
		h.writeServiceError(w, logger, "task update failed", err)
		return
	}

	httputil.RespondJSON(w, t, http.StatusOK)
}

// Delete handles task deletion
// @Summary      Delete a task
// @Tags         tasks
// @Produce      json
// @Param        id path string true "Task ID"
// @Success      200 {object} map[string]string
// @Failure      404 {object} map[string]string "Task not found"
// @Security     BearerAuth
// @Router       /api/tasks/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	taskID, ok := taskIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), taskID); err != nil {
		h.writeServiceError(w, logger, "task deletion failed", err)
		return
	}

	logger.Info("task deleted", "task_id", taskID)
	httputil.RespondJSON(w, map[string]string{"message": "task deleted successfully"}, http.StatusOK)
}

// UpdateStatus handles a status change
// @Summary      Update task status
// @Description  Moving to Completed marks the whole checklist completed.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id path string true "Task ID"
// @Param        request body UpdateStatusRequest true "New status"
// @Success      200 {object} Task
// @Security     BearerAuth
// @Router       /api/tasks/{id}/status [put]
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, isAdmin, ok := h.callerRole(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDFromURL(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	t, err := h.service.UpdateStatus(r.Context(), userID, isAdmin, taskID, req.Status)
	if err != nil {
		h.writeServiceError(w, logger, "status update failed", err)
		return
	}

	httputil.RespondJSON(w, t, http.StatusOK)
}

// UpdateChecklist handles a checklist replacement
// @Summary      Update task checklist
// @Description  Replaces the checklist; progress and status are derived from it.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id path string true "Task ID"
// @Param        request body UpdateChecklistRequest true "New checklist"
// @Success      200 {object} Task
// @Security     BearerAuth
// @Router       /api/tasks/{id}/todo [put]
func (h *Handler) UpdateChecklist(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, isAdmin, ok := h.callerRole(w, r)
	if !ok {
		return
	}
	taskID, ok := taskIDFromURL(w, r)
	if !ok {
		return
	}

	var req UpdateChecklistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	t, err := h.service.UpdateChecklist(r.Context(), userID, isAdmin, taskID, checklistFromRequest(req.TodoChecklist))
	if err != nil {
		h.writeServiceError(w, logger, "checklist update failed", err)
		return
	}

	httputil.RespondJSON(w, t, http.StatusOK)
}

// AdminDashboard returns system-wide dashboard data
// @Summary      Admin dashboard
// @Tags         tasks
// @Produce      json
// @Success      200 {object} Dashboard
// @Security     BearerAuth
// @Router       /api/tasks/admin-dashboard-data [get]
func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	d, err := h.service.AdminDashboard(r.Context())
	if err != nil {
		h.writeServiceError(w, logger, "dashboard failed", err)
		return
	}
	httputil.RespondJSON(w, d, http.StatusOK)
}

// UserDashboard returns dashboard data scoped to the caller's tasks
// @Summary      User dashboard
// @Tags         tasks
// @Produce      json
// @Success      200 {object} Dashboard
// @Security     BearerAuth
// @Router       /api/tasks/dashboard-data [get]
func (h *Handler) UserDashboard(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	d, err := h.service.UserDashboard(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, logger, "dashboard failed", err)
		return
	}
	httputil.RespondJSON(w, d, http.StatusOK)
}

// callerRole resolves the caller's ID and admin flag, writing the error
// response itself when that fails.
func (h *Handler) callerRole(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool, bool) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return uuid.Nil, false, false
	}

	isAdmin, err := h.users.IsAdmin(r.Context(), userID)
	if err != nil {
		logger.Error("failed to resolve caller role", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return uuid.Nil, false, false
	}

	return userID, isAdmin, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, logger *logging.Logger, context string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		logger.Warn(context + ": task not found")
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeTaskNotFound, http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		logger.Warn(context + ": not a task member")
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeNotTaskMember, http.StatusForbidden)
	case errors.Is(err, ErrTitleRequired),
		errors.Is(err, ErrInvalidPriority),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrAssigneeRequired):
		logger.Warn(context+": validation error", "error", err.Error())
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
	default:
		logger.Error(context+": internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

func taskIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid task id", httputil.CodeInvalidTaskRef, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func checklistFromRequest(items []ChecklistItemRequest) []TodoItem {
	out := make([]TodoItem, 0, len(items))
	for i, it := range items {
		out = append(out, TodoItem{Text: it.Text, Completed: it.Completed, Position: i})
	}
	return out
}
