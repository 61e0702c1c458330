package task

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Task priorities.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Task statuses.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
)

// Task is a work item with a checklist and one or more assignees.
type Task struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Priority    string      `json:"priority"`
	Status      string      `json:"status"`
	DueDate     *time.Time  `json:"due_date,omitempty"`
	CreatedByID uuid.UUID   `json:"created_by"`
	Attachments []string    `json:"attachments"`
	Progress    int         `json:"progress"`
	Assignees   []Assignee  `json:"assigned_to"`
	TodoItems   []TodoItem  `json:"todo_checklist"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// CompletedTodoCount is populated on list reads.
	CompletedTodoCount int `json:"completed_todo_count"`
}

// Assignee is the slim user view embedded in task responses.
type Assignee struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	ProfileImageURL *string   `json:"profile_image_url,omitempty"`
}

// TodoItem is one checklist entry.
type TodoItem struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	Position  int       `json:"position"`
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// ChecklistProgress returns the completion percentage of a checklist,
// rounded to the nearest integer. An empty checklist counts as zero.
func ChecklistProgress(items []TodoItem) int {
	if len(items) == 0 {
		return 0
	}
	completed := 0
	for _, it := range items {
		if it.Completed {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(items)) * 100))
}

// StatusForProgress derives the task status from its progress percentage.
func StatusForProgress(progress int) string {
	switch {
	case progress == 100:
		return StatusCompleted
	case progress > 0:
		return StatusInProgress
	default:
		return StatusPending
	}
}

// IsAssignee reports whether userID is among the task's assignees.
func (t *Task) IsAssignee(userID uuid.UUID) bool {
	for _, a := range t.Assignees {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// IsOverdue reports whether the task has a due date in the past and is not
// completed.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != StatusCompleted
}
