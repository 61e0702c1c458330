package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/taskhive/taskhive-api/internal/database"
)

var ErrNotFound = errors.New("task not found")

// Repository provides task persistence backed by Postgres via bun.
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// ListFilter narrows List results. A nil AssigneeID means all tasks.
type ListFilter struct {
	AssigneeID *uuid.UUID
	Status     string
}

// StatusSummary holds task counts per status for a list response.
type StatusSummary struct {
	All        int `json:"all"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// DashboardCounts holds the headline numbers of a dashboard.
type DashboardCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Overdue    int `json:"overdue"`
}

// Create inserts the task with its assignees and checklist in one
// transaction.
func (r *Repository) Create(ctx context.Context, t *Task, assigneeIDs []uuid.UUID) (*Task, error) {
	dbTask := &database.Task{
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     t.DueDate,
		CreatedByID: t.CreatedByID,
		Attachments: t.Attachments,
		Progress:    t.Progress,
	}

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(dbTask).Returning("*").Exec(ctx); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}

		if err := insertAssignees(ctx, tx, dbTask.ID, assigneeIDs); err != nil {
			return err
		}
		return insertTodoItems(ctx, tx, dbTask.ID, t.TodoItems)
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, dbTask.ID)
}

// GetByID returns the task with assignees and checklist loaded.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	dbTask := new(database.Task)
	err := r.db.NewSelect().
		Model(dbTask).
		Relation("Assignees").
		Relation("TodoItems", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("position ASC")
		}).
		Where("t.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select task: %w", err)
	}
	return mapDBTask(dbTask), nil
}

// List returns tasks matching the filter, newest first, with checklist
// completion counts populated.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]*Task, error) {
	var dbTasks []*database.Task
	q := r.db.NewSelect().
		Model(&dbTasks).
		Relation("Assignees").
		Relation("TodoItems", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("position ASC")
		}).
		Order("t.created_at DESC")

	q = applyFilter(q, filter)

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select tasks: %w", err)
	}

	tasks := make([]*Task, 0, len(dbTasks))
	for _, dt := range dbTasks {
		tasks = append(tasks, mapDBTask(dt))
	}
	return tasks, nil
}

// Summary returns per-status counts for the same population List sees,
// ignoring any status filter.
func (r *Repository) Summary(ctx context.Context, assigneeID *uuid.UUID) (*StatusSummary, error) {
	var rows []statusCount
	q := r.db.NewSelect().
		Model((*database.Task)(nil)).
		ColumnExpr("t.status AS status").
		ColumnExpr("count(*) AS count").
		Group("t.status")

	q = applyFilter(q, ListFilter{AssigneeID: assigneeID})

	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}

	summary := &StatusSummary{}
	for _, row := range rows {
		summary.All += row.Count
		switch row.Status {
		case StatusPending:
			summary.Pending = row.Count
		case StatusInProgress:
			summary.InProgress = row.Count
		case StatusCompleted:
			summary.Completed = row.Count
		}
	}
	return summary, nil
}

// Save updates the task's own columns. Assignees and checklist are
// replaced separately.
func (r *Repository) Save(ctx context.Context, t *Task) error {
	res, err := r.db.NewUpdate().
		Model((*database.Task)(nil)).
		Set("title = ?", t.Title).
		Set("description = ?", t.Description).
		Set("priority = ?", t.Priority).
		Set("status = ?", t.Status).
		Set("due_date = ?", t.DueDate).
		Set("attachments = ?", pgdialect.Array(t.Attachments)).
		Set("progress = ?", t.Progress).
		Set("updated_at = NOW()").
		Where("id = ?", t.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceAssignees swaps the assignee set of a task.
func (r *Repository) ReplaceAssignees(ctx context.Context, taskID uuid.UUID, userIDs []uuid.UUID) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*database.TaskAssignee)(nil)).
			Where("task_id = ?", taskID).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete assignees: %w", err)
		}
		return insertAssignees(ctx, tx, taskID, userIDs)
	})
}

// ReplaceChecklist swaps the checklist of a task.
func (r *Repository) ReplaceChecklist(ctx context.Context, taskID uuid.UUID, items []TodoItem) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*database.TodoItem)(nil)).
			Where("task_id = ?", taskID).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete checklist: %w", err)
		}
		return insertTodoItems(ctx, tx, taskID, items)
	})
}

// Delete removes the task. Assignee and checklist rows go with it via
// ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*database.Task)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DashboardCounts returns the headline numbers for a dashboard scoped to
// one assignee, or to everything when assigneeID is nil.
func (r *Repository) DashboardCounts(ctx context.Context, assigneeID *uuid.UUID, now time.Time) (*DashboardCounts, error) {
	summary, err := r.Summary(ctx, assigneeID)
	if err != nil {
		return nil, err
	}

	overdueQ := r.db.NewSelect().
		Model((*database.Task)(nil)).
		Where("t.due_date < ?", now).
		Where("t.status != ?", StatusCompleted)
	overdueQ = applyFilter(overdueQ, ListFilter{AssigneeID: assigneeID})

	overdue, err := overdueQ.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count overdue tasks: %w", err)
	}

	return &DashboardCounts{
		Total:      summary.All,
		Pending:    summary.Pending,
		InProgress: summary.InProgress,
		Completed:  summary.Completed,
		Overdue:    overdue,
	}, nil
}

// DistributionByStatus returns task counts keyed by status.
func (r *Repository) DistributionByStatus(ctx context.Context, assigneeID *uuid.UUID) (map[string]int, error) {
	summary, err := r.Summary(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	return map[string]int{
		StatusPending:    summary.Pending,
		StatusInProgress: summary.InProgress,
		StatusCompleted:  summary.Completed,
	}, nil
}

// DistributionByPriority returns task counts keyed by priority.
func (r *Repository) DistributionByPriority(ctx context.Context, assigneeID *uuid.UUID) (map[string]int, error) {
	var rows []priorityCount
	q := r.db.NewSelect().
		Model((*database.Task)(nil)).
		ColumnExpr("t.priority AS priority").
		ColumnExpr("count(*) AS count").
		Group("t.priority")
	q = applyFilter(q, ListFilter{AssigneeID: assigneeID})

	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("count tasks by priority: %w", err)
	}

	dist := map[string]int{
		PriorityLow:    0,
		PriorityMedium: 0,
		PriorityHigh:   0,
	}
	for _, row := range rows {
		dist[row.Priority] = row.Count
	}
	return dist, nil
}

// Recent returns the most recently created tasks, assignees loaded.
func (r *Repository) Recent(ctx context.Context, assigneeID *uuid.UUID, limit int) ([]*Task, error) {
	var dbTasks []*database.Task
	q := r.db.NewSelect().
		Model(&dbTasks).
		Relation("Assignees").
		Order("t.created_at DESC").
		Limit(limit)
	q = applyFilter(q, ListFilter{AssigneeID: assigneeID})

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select recent tasks: %w", err)
	}

	tasks := make([]*Task, 0, len(dbTasks))
	for _, dt := range dbTasks {
		tasks = append(tasks, mapDBTask(dt))
	}
	return tasks, nil
}

// CountByStatusForUser returns the per-status counts for one user's
// assigned tasks. Used for member listings and reports.
func (r *Repository) CountByStatusForUser(ctx context.Context, userID uuid.UUID) (*StatusSummary, error) {
	return r.Summary(ctx, &userID)
}

type statusCount struct {
	Status string `bun:"status"`
	Count  int    `bun:"count"`
}

type priorityCount struct {
	Priority string `bun:"priority"`
	Count    int    `bun:"count"`
}

func applyFilter(q *bun.SelectQuery, filter ListFilter) *bun.SelectQuery {
	if filter.AssigneeID != nil {
		q = q.Join("JOIN task_assignees AS ta ON ta.task_id = t.id").
			Where("ta.user_id = ?", *filter.AssigneeID)
	}
	if filter.Status != "" {
		q = q.Where("t.status = ?", filter.Status)
	}
	return q
}

func insertAssignees(ctx context.Context, tx bun.Tx, taskID uuid.UUID, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]*database.TaskAssignee, 0, len(userIDs))
	for _, uid := range userIDs {
		rows = append(rows, &database.TaskAssignee{TaskID: taskID, UserID: uid})
	}
	if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert assignees: %w", err)
	}
	return nil
}

func insertTodoItems(ctx context.Context, tx bun.Tx, taskID uuid.UUID, items []TodoItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]*database.TodoItem, 0, len(items))
	for i, it := range items {
		rows = append(rows, &database.TodoItem{
			TaskID:    taskID,
			Text:      it.Text,
			Completed: it.Completed,
			Position:  i,
		})
	}
	if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("insert checklist: %w", err)
	}
	return nil
}

func mapDBTask(dt *database.Task) *Task {
	t := &Task{
		ID:          dt.ID,
		Title:       dt.Title,
		Description: dt.Description,
		Priority:    dt.Priority,
		Status:      dt.Status,
		DueDate:     dt.DueDate,
		CreatedByID: dt.CreatedByID,
		Attachments: dt.Attachments,
		Progress:    dt.Progress,
		CreatedAt:   dt.CreatedAt,
		UpdatedAt:   dt.UpdatedAt,
	}
	if t.Attachments == nil {
		t.Attachments = []string{}
	}

	t.Assignees = make([]Assignee, 0, len(dt.Assignees))
	for _, u := range dt.Assignees {
		t.Assignees = append(t.Assignees, Assignee{
			ID:              u.ID,
			Name:            u.Name,
			Email:           u.Email,
			ProfileImageURL: u.ProfileImageURL,
		})
	}

	t.TodoItems = make([]TodoItem, 0, len(dt.TodoItems))
	for _, it := range dt.TodoItems {
		t.TodoItems = append(t.TodoItems, TodoItem{
			ID:        it.ID,
			Text:      it.Text,
			Completed: it.Completed,
			Position:  it.Position,
		})
		if it.Completed {
			t.CompletedTodoCount++
		}
	}
	return t
}
