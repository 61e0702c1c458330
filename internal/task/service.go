package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTitleRequired    = errors.New("title is required")
	ErrInvalidPriority  = errors.New("priority must be Low, Medium or High")
	ErrInvalidStatus    = errors.New("status must be Pending, In Progress or Completed")
	ErrAssigneeRequired = errors.New("at least one assignee is required")
	ErrForbidden        = errors.New("not a member of this task")
)

const recentTaskLimit = 10

// Store is the persistence surface the service depends on.
type Store interface {
	Create(ctx context.Context, t *Task, assigneeIDs []uuid.UUID) (*Task, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	List(ctx context.Context, filter ListFilter) ([]*Task, error)
	Summary(ctx context.Context, assigneeID *uuid.UUID) (*StatusSummary, error)
	Save(ctx context.Context, t *Task) error
	ReplaceAssignees(ctx context.Context, taskID uuid.UUID, userIDs []uuid.UUID) error
	ReplaceChecklist(ctx context.Context, taskID uuid.UUID, items []TodoItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	DashboardCounts(ctx context.Context, assigneeID *uuid.UUID, now time.Time) (*DashboardCounts, error)
	DistributionByStatus(ctx context.Context, assigneeID *uuid.UUID) (map[string]int, error)
	DistributionByPriority(ctx context.Context, assigneeID *uuid.UUID) (map[string]int, error)
	Recent(ctx context.Context, assigneeID *uuid.UUID, limit int) ([]*Task, error)
}

// Service implements the task rules: who may touch a task, and how the
// checklist drives progress and status.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// CreateInput carries the fields of a new task.
type CreateInput struct {
	Title       string
	Description string
	Priority    string
	Status      string
	DueDate     *time.Time
	Attachments []string
	AssigneeIDs []uuid.UUID
	Checklist   []TodoItem
}

// UpdateInput carries a partial task update. Nil fields are left alone.
type UpdateInput struct {
	Title       *string
	Description *string
	Priority    *string
	DueDate     *time.Time
	Attachments []string
	AssigneeIDs []uuid.UUID
	Checklist   []TodoItem
}

// Create validates and stores a new task. Progress and status are derived
// from the checklist unless an explicit status was given.
func (s *Service) Create(ctx context.Context, createdBy uuid.UUID, in CreateInput) (*Task, error) {
	if in.Title == "" {
		return nil, ErrTitleRequired
	}
	if in.Priority == "" {
		in.Priority = PriorityLow
	}
	if !ValidPriority(in.Priority) {
		return nil, ErrInvalidPriority
	}
	if len(in.AssigneeIDs) == 0 {
		return nil, ErrAssigneeRequired
	}

	progress := ChecklistProgress(in.Checklist)
	status := in.Status
	if status == "" {
		status = StatusForProgress(progress)
	}
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	t := &Task{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Status:      status,
		DueDate:     in.DueDate,
		CreatedByID: createdBy,
		Attachments: in.Attachments,
		Progress:    progress,
		TodoItems:   in.Checklist,
	}
	return s.store.Create(ctx, t, in.AssigneeIDs)
}

// Get returns a task if the user is an assignee or an admin.
func (s *Service) Get(ctx context.Context, userID uuid.UUID, isAdmin bool, taskID uuid.UUID) (*Task, error) {
	t, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !t.IsAssignee(userID) {
		return nil, ErrForbidden
	}
	return t, nil
}

// List returns tasks visible to the user plus a status summary. Admins see
// everything, members only their assigned tasks. The summary always covers
// the unfiltered population.
func (s *Service) List(ctx context.Context, userID uuid.UUID, isAdmin bool, status string) ([]*Task, *StatusSummary, error) {
	if status != "" && !ValidStatus(status) {
		return nil, nil, ErrInvalidStatus
	}

	var assigneeID *uuid.UUID
	if !isAdmin {
		assigneeID = &userID
	}

	tasks, err := s.store.List(ctx, ListFilter{AssigneeID: assigneeID, Status: status})
	if err != nil {
		return nil, nil, err
	}
	summary, err := s.store.Summary(ctx, assigneeID)
	if err != nil {
		return nil, nil, err
	}
	return tasks, summary, nil
}

// Update applies a partial update. Replacing the checklist recomputes
// progress and status.
func (s *Service) Update(ctx context.Context, userID uuid.UUID, isAdmin bool, taskID uuid.UUID, in UpdateInput) (*Task, error) {
	t, err := s.Get(ctx, userID, isAdmin, taskID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if *in.Title == "" {
			return nil, ErrTitleRequired
		}
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Priority != nil {
		if !ValidPriority(*in.Priority) {
			return nil, ErrInvalidPriority
		}
		t.Priority = *in.Priority
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.Attachments != nil {
		t.Attachments = in.Attachments
	}

	if in.Checklist != nil {
		t.Progress = ChecklistProgress(in.Checklist)
		t.Status = StatusForProgress(t.Progress)
		if err := s.store.ReplaceChecklist(ctx, t.ID, in.Checklist); err != nil {
			return nil, err
		}
	}
	if in.AssigneeIDs != nil {
		if len(in.AssigneeIDs) == 0 {
			return nil, ErrAssigneeRequired
		}
		if err := s.store.ReplaceAssignees(ctx, t.ID, in.AssigneeIDs); err != nil {
			return nil, err
		}
	}

	if err := s.store.Save(ctx, t); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, t.ID)
}

// UpdateStatus changes the task status. Moving to Completed marks every
// checklist item completed and sets progress to 100.
func (s *Service) UpdateStatus(ctx context.Context, userID uuid.UUID, isAdmin bool, taskID uuid.UUID, status string) (*Task, error) {
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	t, err := s.Get(ctx, userID, isAdmin, taskID)
	if err != nil {
		return nil, err
	}

	t.Status = status
	if status == StatusCompleted {
		for i := range t.TodoItems {
			t.TodoItems[i].Completed = true
		}
		t.Progress = 100
		if err := s.store.ReplaceChecklist(ctx, t.ID, t.TodoItems); err != nil {
			return nil, err
		}
	}

	if err := s.store.Save(ctx, t); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, t.ID)
}

// UpdateChecklist replaces the checklist and derives progress and status
// from it.
func (s *Service) UpdateChecklist(ctx context.Context, userID uuid.UUID, isAdmin bool, taskID uuid.UUID, items []TodoItem) (*Task, error) {
	t, err := s.Get(ctx, userID, isAdmin, taskID)
	if err != nil {
		return nil, err
	}

	t.Progress = ChecklistProgress(items)
	t.Status = StatusForProgress(t.Progress)

	if err := s.store.ReplaceChecklist(ctx, t.ID, items); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, t); err != nil {
		return nil, err
	}
	return s.store.GetByID(ctx, t.ID)
}

// Delete removes a task.
func (s *Service) Delete(ctx context.Context, taskID uuid.UUID) error {
	return s.store.Delete(ctx, taskID)
}

// Dashboard aggregates counts, charts and recent tasks.
type Dashboard struct {
	Statistics *DashboardCounts `json:"statistics"`
	Charts     DashboardCharts  `json:"charts"`
	Recent     []*Task          `json:"recent_tasks"`
}

type DashboardCharts struct {
	ByStatus   map[string]int `json:"task_distribution"`
	ByPriority map[string]int `json:"task_priority_levels"`
}

// AdminDashboard covers every task in the system.
func (s *Service) AdminDashboard(ctx context.Context) (*Dashboard, error) {
	return s.dashboard(ctx, nil)
}

// UserDashboard covers the user's assigned tasks only.
func (s *Service) UserDashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	return s.dashboard(ctx, &userID)
}

func (s *Service) dashboard(ctx context.Context, assigneeID *uuid.UUID) (*Dashboard, error) {
	counts, err := s.store.DashboardCounts(ctx, assigneeID, s.now())
	if err != nil {
		return nil, err
	}
	byStatus, err := s.store.DistributionByStatus(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	byPriority, err := s.store.DistributionByPriority(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.Recent(ctx, assigneeID, recentTaskLimit)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Statistics: counts,
		Charts: DashboardCharts{
			ByStatus:   byStatus,
			ByPriority: byPriority,
		},
		Recent: recent,
	}, nil
}
