package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the users table row. The one-time-code columns hold only HMAC
// digests, never plaintext codes; they are cleared in the same UPDATE that
// consumes them.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID              uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Name            string    `bun:"name,notnull"`
	Email           string    `bun:"email,notnull,unique"`
	PasswordHash    string    `bun:"password_hash,notnull"`
	ProfileImageURL *string   `bun:"profile_image_url"`
	Role            string    `bun:"role,notnull,default:'member'"`
	Verified        bool      `bun:"verified,notnull,default:false"`

	VerificationCodeHash      *string    `bun:"verification_code_hash"`
	VerificationCodeExpiresAt *time.Time `bun:"verification_code_expires_at"`
	ResetCodeHash             *string    `bun:"reset_code_hash"`
	ResetCodeIssuedAt         *time.Time `bun:"reset_code_issued_at"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Task is the tasks table row.
type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Title       string     `bun:"title,notnull"`
	Description string     `bun:"description"`
	Priority    string     `bun:"priority,notnull,default:'Low'"`
	Status      string     `bun:"status,notnull,default:'Pending'"`
	DueDate     *time.Time `bun:"due_date"`
	CreatedByID uuid.UUID  `bun:"created_by,type:uuid"`
	Attachments []string   `bun:"attachments,array"`
	Progress    int        `bun:"progress,notnull,default:0"`

	Assignees []*User     `bun:"m2m:task_assignees,join:Task=User"`
	TodoItems []*TodoItem `bun:"rel:has-many,join:id=task_id"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// TaskAssignee joins tasks to the users they are assigned to.
type TaskAssignee struct {
	bun.BaseModel `bun:"table:task_assignees,alias:ta"`

	TaskID uuid.UUID `bun:"task_id,pk,type:uuid"`
	Task   *Task     `bun:"rel:belongs-to,join:task_id=id"`
	UserID uuid.UUID `bun:"user_id,pk,type:uuid"`
	User   *User     `bun:"rel:belongs-to,join:user_id=id"`
}

// TodoItem is a checklist entry belonging to a task.
type TodoItem struct {
	bun.BaseModel `bun:"table:todo_items,alias:ti"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	TaskID    uuid.UUID `bun:"task_id,notnull,type:uuid"`
	Text      string    `bun:"text,notnull"`
	Completed bool      `bun:"completed,notnull,default:false"`
	Position  int       `bun:"position,notnull,default:0"`
}
