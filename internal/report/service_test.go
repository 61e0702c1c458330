package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/taskhive-api/internal/task"
	"github.com/taskhive/taskhive-api/internal/user"
)

type fakeTaskLister struct {
	tasks      []*task.Task
	lastFilter task.ListFilter
}

func (f *fakeTaskLister) List(ctx context.Context, filter task.ListFilter) ([]*task.Task, error) {
	f.lastFilter = filter
	return f.tasks, nil
}

type fakeMemberCounter struct {
	members []*user.User
}

func (f *fakeMemberCounter) ListMembers(ctx context.Context) ([]*user.User, error) {
	return f.members, nil
}

type fakeTaskCounter struct {
	counts map[uuid.UUID]*task.StatusSummary
}

func (f *fakeTaskCounter) CountByStatusForUser(ctx context.Context, userID uuid.UUID) (*task.StatusSummary, error) {
	if s, ok := f.counts[userID]; ok {
		return s, nil
	}
	return &task.StatusSummary{}, nil
}

func TestTasksWorkbook(t *testing.T) {
	due := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	t1 := &task.Task{
		ID:          uuid.New(),
		Title:       "Ship the release",
		Description: "Cut the tag",
		Priority:    task.PriorityHigh,
		Status:      task.StatusInProgress,
		DueDate:     &due,
		Assignees: []task.Assignee{
			{Name: "Alice", Email: "alice@example.com"},
			{Name: "Bob", Email: "bob@example.com"},
		},
	}
	t2 := &task.Task{
		ID:       uuid.New(),
		Title:    "Write docs",
		Priority: task.PriorityLow,
		Status:   task.StatusPending,
	}

	lister := &fakeTaskLister{tasks: []*task.Task{t1, t2}}
	svc := NewService(lister, &fakeMemberCounter{}, &fakeTaskCounter{})

	f, err := svc.TasksWorkbook(context.Background(), task.ListFilter{Status: task.StatusPending})
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, task.StatusPending, lister.lastFilter.Status)

	const sheet = "Tasks"
	header, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Task ID", header)

	title, err := f.GetCellValue(sheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Ship the release", title)

	dueCell, err := f.GetCellValue(sheet, "F2")
	require.NoError(t, err)
	assert.Equal(t, "2026-04-01", dueCell)

	assigned, err := f.GetCellValue(sheet, "G2")
	require.NoError(t, err)
	assert.Equal(t, "Alice (alice@example.com), Bob (bob@example.com)", assigned)

	// No due date and no assignees fall back to placeholders.
	dueCell, err = f.GetCellValue(sheet, "F3")
	require.NoError(t, err)
	assert.Equal(t, "N/A", dueCell)

	assigned, err = f.GetCellValue(sheet, "G3")
	require.NoError(t, err)
	assert.Equal(t, "Unassigned", assigned)
}

func TestUsersWorkbook(t *testing.T) {
	alice := &user.User{ID: uuid.New(), Name: "Alice", Email: "alice@example.com"}
	bob := &user.User{ID: uuid.New(), Name: "Bob", Email: "bob@example.com"}

	counter := &fakeTaskCounter{counts: map[uuid.UUID]*task.StatusSummary{
		alice.ID: {All: 3, Pending: 1, InProgress: 1, Completed: 1},
	}}
	svc := NewService(&fakeTaskLister{}, &fakeMemberCounter{members: []*user.User{alice, bob}}, counter)

	f, err := svc.UsersWorkbook(context.Background())
	require.NoError(t, err)
	defer f.Close()

	const sheet = "User Task Report"
	name, err := f.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	total, err := f.GetCellValue(sheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "3", total)

	// Bob has no tasks on file; counts default to zero.
	bobTotal, err := f.GetCellValue(sheet, "C3")
	require.NoError(t, err)
	assert.Equal(t, "0", bobTotal)
}
