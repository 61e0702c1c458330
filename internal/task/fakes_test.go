package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryTaskStore is an in-memory Store implementation for service tests.
type memoryTaskStore struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]*Task
	assignees map[uuid.UUID][]uuid.UUID
}

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{
		tasks:     map[uuid.UUID]*Task{},
		assignees: map[uuid.UUID][]uuid.UUID{},
	}
}

func (s *memoryTaskStore) Create(ctx context.Context, t *Task, assigneeIDs []uuid.UUID) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneTask(t)
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.tasks[stored.ID] = stored
	s.assignees[stored.ID] = append([]uuid.UUID(nil), assigneeIDs...)

	return s.materialize(stored), nil
}

func (s *memoryTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.materialize(stored), nil
}

func (s *memoryTaskStore) List(ctx context.Context, filter ListFilter) ([]*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Task
	for _, stored := range s.tasks {
		if s.matches(stored, filter) {
			out = append(out, s.materialize(stored))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryTaskStore) Summary(ctx context.Context, assigneeID *uuid.UUID) (*StatusSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &StatusSummary{}
	for _, stored := range s.tasks {
		if !s.matches(stored, ListFilter{AssigneeID: assigneeID}) {
			continue
		}
		summary.All++
		switch stored.Status {
		case StatusPending:
			summary.Pending++
		case StatusInProgress:
			summary.InProgress++
		case StatusCompleted:
			summary.Completed++
		}
	}
	return summary, nil
}

func (s *memoryTaskStore) Save(ctx context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[t.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Title = t.Title
	stored.Description = t.Description
	stored.Priority = t.Priority
	stored.Status = t.Status
	stored.DueDate = t.DueDate
	stored.Attachments = t.Attachments
	stored.Progress = t.Progress
	stored.UpdatedAt = time.Now()
	return nil
}

func (s *memoryTaskStore) ReplaceAssignees(ctx context.Context, taskID uuid.UUID, userIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return ErrNotFound
	}
	s.assignees[taskID] = append([]uuid.UUID(nil), userIDs...)
	return nil
}

func (s *memoryTaskStore) ReplaceChecklist(ctx context.Context, taskID uuid.UUID, items []TodoItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	stored.TodoItems = make([]TodoItem, len(items))
	for i, it := range items {
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		it.Position = i
		stored.TodoItems[i] = it
	}
	return nil
}

func (s *memoryTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(s.tasks, id)
	delete(s.assignees, id)
	return nil
}

func (s *memoryTaskStore) DashboardCounts(ctx context.Context, assigneeID *uuid.UUID, now time.Time) (*DashboardCounts, error) {
	summary, err := s.Summary(ctx, assigneeID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	overdue := 0
	for _, stored := range s.tasks {
		if s.matches(stored, ListFilter{AssigneeID: assigneeID}) && stored.IsOverdue(now) {
			overdue++
		}
	}

	return &DashboardCounts{
		Total:      summary.All,
		Pending:    summary.Pending,
		InProgress: summary.InProgress,
		Completed:  summary.Completed,
		Overdue:    overdue,
	}, nil
}

func (s *memoryTaskStore) DistributionByStatus(ctx context.Context, assigneeID *uuid.UUID) (map[string]int, error) {
	summary, err := s.Summary(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	return map[string]int{
		StatusPending:    summary.Pending,
		StatusInProgress: summary.InProgress,
		StatusCompleted:  summary.Completed,
	}, nil
}

func (s *memoryTaskStore) DistributionByPriority(ctx context.Context, assigneeID *uuid.UUID) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dist := map[string]int{PriorityLow: 0, PriorityMedium: 0, PriorityHigh: 0}
	for _, stored := range s.tasks {
		if s.matches(stored, ListFilter{AssigneeID: assigneeID}) {
			dist[stored.Priority]++
		}
	}
	return dist, nil
}

func (s *memoryTaskStore) Recent(ctx context.Context, assigneeID *uuid.UUID, limit int) ([]*Task, error) {
	out, err := s.List(ctx, ListFilter{AssigneeID: assigneeID})
	if err != nil {
		return nil, err
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// matches must be called with the lock held except via Summary.
func (s *memoryTaskStore) matches(stored *Task, filter ListFilter) bool {
	if filter.Status != "" && stored.Status != filter.Status {
		return false
	}
	if filter.AssigneeID == nil {
		return true
	}
	for _, id := range s.assignees[stored.ID] {
		if id == *filter.AssigneeID {
			return true
		}
	}
	return false
}

func (s *memoryTaskStore) materialize(stored *Task) *Task {
	out := cloneTask(stored)
	out.Assignees = nil
	for _, id := range s.assignees[stored.ID] {
		out.Assignees = append(out.Assignees, Assignee{ID: id})
	}
	out.CompletedTodoCount = 0
	for _, it := range out.TodoItems {
		if it.Completed {
			out.CompletedTodoCount++
		}
	}
	return out
}

func cloneTask(t *Task) *Task {
	out := *t
	out.Attachments = append([]string(nil), t.Attachments...)
	out.TodoItems = append([]TodoItem(nil), t.TodoItems...)
	out.Assignees = append([]Assignee(nil), t.Assignees...)
	if t.DueDate != nil {
		d := *t.DueDate
		out.DueDate = &d
	}
	return &out
}
