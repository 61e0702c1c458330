package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/taskhive/taskhive-api/internal/task"
	"github.com/taskhive/taskhive-api/internal/user"
)

// TaskLister supplies the tasks a report covers.
type TaskLister interface {
	List(ctx context.Context, filter task.ListFilter) ([]*task.Task, error)
}

// MemberCounter supplies the members and their per-status task counts.
type MemberCounter interface {
	ListMembers(ctx context.Context) ([]*user.User, error)
}

// TaskCounter returns per-status counts of one user's assigned tasks.
type TaskCounter interface {
	CountByStatusForUser(ctx context.Context, userID uuid.UUID) (*task.StatusSummary, error)
}

// Service builds .xlsx exports of tasks and member workloads.
type Service struct {
	tasks   TaskLister
	members MemberCounter
	counts  TaskCounter
}

func NewService(tasks TaskLister, members MemberCounter, counts TaskCounter) *Service {
	return &Service{tasks: tasks, members: members, counts: counts}
}

const dateLayout = "2006-01-02"

var taskHeader = []string{"Task ID", "Title", "Description", "Priority", "Status", "Due Date", "Assigned To"}

// TasksWorkbook renders all tasks matching the filter into a workbook.
func (s *Service) TasksWorkbook(ctx context.Context, filter task.ListFilter) (*excelize.File, error) {
	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "Tasks"
	f.SetSheetName("Sheet1", sheet)

	if err := writeRow(f, sheet, 1, taskHeader); err != nil {
		return nil, err
	}

	for i, t := range tasks {
		due := "N/A"
		if t.DueDate != nil {
			due = t.DueDate.Format(dateLayout)
		}
		names := make([]string, 0, len(t.Assignees))
		for _, a := range t.Assignees {
			names = append(names, fmt.Sprintf("%s (%s)", a.Name, a.Email))
		}
		assigned := strings.Join(names, ", ")
		if assigned == "" {
			assigned = "Unassigned"
		}

		row := []string{
			t.ID.String(), t.Title, t.Description, t.Priority, t.Status, due, assigned,
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	return f, nil
}

var userHeader = []string{"Name", "Email", "Total Tasks", "Pending", "In Progress", "Completed"}

// UsersWorkbook renders a per-member workload rollup into a workbook.
func (s *Service) UsersWorkbook(ctx context.Context) (*excelize.File, error) {
	members, err := s.members.ListMembers(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "User Task Report"
	f.SetSheetName("Sheet1", sheet)

	if err := writeRow(f, sheet, 1, userHeader); err != nil {
		return nil, err
	}

	for i, m := range members {
		counts, err := s.counts.CountByStatusForUser(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		row := []any{
			m.Name, m.Email, counts.All, counts.Pending, counts.InProgress, counts.Completed,
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func writeRow[T any](f *excelize.File, sheet string, rowNum int, values []T) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("row %d cell name: %w", rowNum, err)
	}
	anyValues := make([]any, len(values))
	for i, v := range values {
		anyValues[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &anyValues); err != nil {
		return fmt.Errorf("write row %d: %w", rowNum, err)
	}
	return nil
}
