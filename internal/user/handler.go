package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/taskhive/taskhive-api/internal/httputil"
	"github.com/taskhive/taskhive-api/internal/logging"
)

// TaskCounts is the per-status workload of one user.
type TaskCounts struct {
	Pending    int
	InProgress int
	Completed  int
}

// TaskCounterFunc returns the per-status counts of one user's assigned
// tasks. Wired from the task repository at startup; a plain func keeps
// this package free of a task dependency.
type TaskCounterFunc func(ctx context.Context, userID uuid.UUID) (TaskCounts, error)

// Handler contains HTTP handlers for the admin user endpoints
type Handler struct {
	repo   *Repository
	counts TaskCounterFunc
	logger *logging.Logger
}

func NewHandler(repo *Repository, counts TaskCounterFunc, logger *logging.Logger) *Handler {
	return &Handler{repo: repo, counts: counts, logger: logger}
}

// MemberWithCounts is a member annotated with their task workload.
type MemberWithCounts struct {
	*User
	PendingTasks    int `json:"pending_tasks"`
	InProgressTasks int `json:"in_progress_tasks"`
	CompletedTasks  int `json:"completed_tasks"`
}

// ListMembers returns all members with their per-status task counts
// @Summary      List members
// @Tags         users
// @Produce      json
// @Success      200 {array} MemberWithCounts
// @Security     BearerAuth
// @Router       /api/users [get]
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	members, err := h.repo.ListMembers(r.Context())
	if err != nil {
		logger.Error("member listing failed", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	out := make([]MemberWithCounts, 0, len(members))
	for _, m := range members {
		counts, err := h.counts(r.Context(), m.ID)
		if err != nil {
			logger.Error("member task counts failed", "user_id", m.ID, "error", err.Error())
			httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
			return
		}
		out = append(out, MemberWithCounts{
			User:            m,
			PendingTasks:    counts.Pending,
			InProgressTasks: counts.InProgress,
			CompletedTasks:  counts.Completed,
		})
	}

	httputil.RespondJSON(w, out, http.StatusOK)
}

// GetByID returns a single user
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} User
// @Failure      404 {object} map[string]string "User not found"
// @Security     BearerAuth
// @Router       /api/users/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := userIDFromURL(w, r)
	if !ok {
		return
	}

	u, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeRepoError(w, logger, "user read failed", err)
		return
	}

	httputil.RespondJSON(w, u, http.StatusOK)
}

// Delete removes a user
// @Summary      Delete a user
// @Tags         users
// @Produce      json
// @Param        id path string true "User ID"
// @Success      200 {object} map[string]string
// @Failure      404 {object} map[string]string "User not found"
// @Security     BearerAuth
// @Router       /api/users/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, ok := userIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeRepoError(w, logger, "user deletion failed", err)
		return
	}

	logger.Info("user deleted", "user_id", id)
	httputil.RespondJSON(w, map[string]string{"message": "user deleted successfully"}, http.StatusOK)
}

func (h *Handler) writeRepoError(w http.ResponseWriter, logger *logging.Logger, context string, err error) {
	if errors.Is(err, ErrNotFound) {
		logger.Warn(context + ": user not found")
		httputil.RespondErrorWithCode(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
		return
	}
	logger.Error(context+": internal error", "error", err.Error())
	httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
}

func userIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondErrorWithCode(w, "invalid user id", httputil.CodeValidationFailed, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
