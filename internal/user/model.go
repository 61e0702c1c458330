package user

import (
	"time"

	"github.com/google/uuid"
)

// Roles assigned at registration. A role never changes through this API.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

type User struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"` // Never expose password hash in JSON
	ProfileImageURL *string   `json:"profile_image_url,omitempty"`
	Role            string    `json:"role"`
	Verified        bool      `json:"verified"`

	// One-time-code fields. Populated only when the record is loaded with
	// secrets; nil means either "no outstanding code" or "not loaded".
	VerificationCodeHash      *string    `json:"-"`
	VerificationCodeExpiresAt *time.Time `json:"-"`
	ResetCodeHash             *string    `json:"-"`
	ResetCodeIssuedAt         *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPendingVerification reports whether an unconsumed verification code is
// on file. Requires the record to have been loaded with secrets.
func (u *User) HasPendingVerification() bool {
	return u.VerificationCodeHash != nil && u.VerificationCodeExpiresAt != nil
}

// HasPendingReset reports whether an unconsumed reset code is on file.
// Requires the record to have been loaded with secrets.
func (u *User) HasPendingReset() bool {
	return u.ResetCodeHash != nil && u.ResetCodeIssuedAt != nil
}
