package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/taskhive/taskhive-api/internal/database"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// secretColumns are excluded from reads unless the caller asks for them,
// mirroring the store contract's revealSecretFields flag.
var secretColumns = []string{
	"password_hash",
	"verification_code_hash",
	"verification_code_expires_at",
	"reset_code_hash",
	"reset_code_issued_at",
}

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user into the database
func (r *Repository) Create(ctx context.Context, u *User) (*User, error) {
	dbUser := &database.User{
		Name:            u.Name,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		ProfileImageURL: u.ProfileImageURL,
		Role:            u.Role,
		Verified:        u.Verified,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by email. Secret columns (password hash and
// one-time-code fields) are included only when withSecrets is true.
func (r *Repository) GetByEmail(ctx context.Context, email string, withSecrets bool) (*User, error) {
	dbUser := new(database.User)
	q := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", email)
	if !withSecrets {
		q = q.ExcludeColumn(secretColumns...)
	}

	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID without secret columns.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		ExcludeColumn(secretColumns...).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// IsAdmin reports whether the user holds the admin role.
func (r *Repository) IsAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	var role string
	err := r.db.NewSelect().
		Model((*database.User)(nil)).
		Column("role").
		Where("id = ?", id).
		Scan(ctx, &role)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("failed to get user role: %w", err)
	}

	return role == RoleAdmin, nil
}

// GetByIDWithSecrets retrieves a user by ID including the password hash and
// one-time-code columns.
func (r *Repository) GetByIDWithSecrets(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// Save writes all mutable fields of the record in a single UPDATE. One row,
// one statement; consume flows rely on this to clear code fields and flip
// state atomically.
func (r *Repository) Save(ctx context.Context, u *User) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("name = ?", u.Name).
		Set("email = ?", u.Email).
		Set("password_hash = ?", u.PasswordHash).
		Set("profile_image_url = ?", u.ProfileImageURL).
		Set("verified = ?", u.Verified).
		Set("verification_code_hash = ?", u.VerificationCodeHash).
		Set("verification_code_expires_at = ?", u.VerificationCodeExpiresAt).
		Set("reset_code_hash = ?", u.ResetCodeHash).
		Set("reset_code_issued_at = ?", u.ResetCodeIssuedAt).
		Set("updated_at = NOW()").
		Where("id = ?", u.ID).
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to save user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListMembers returns all users with the member role, without secrets.
func (r *Repository) ListMembers(ctx context.Context) ([]*User, error) {
	var dbUsers []*database.User
	err := r.db.NewSelect().
		Model(&dbUsers).
		ExcludeColumn(secretColumns...).
		Where("role = ?", RoleMember).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	users := make([]*User, 0, len(dbUsers))
	for _, dbu := range dbUsers {
		users = append(users, mapDBUserToModel(dbu))
	}
	return users, nil
}

// Delete removes a user record.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:                        dbu.ID,
		Name:                      dbu.Name,
		Email:                     dbu.Email,
		PasswordHash:              dbu.PasswordHash,
		ProfileImageURL:           dbu.ProfileImageURL,
		Role:                      dbu.Role,
		Verified:                  dbu.Verified,
		VerificationCodeHash:      dbu.VerificationCodeHash,
		VerificationCodeExpiresAt: dbu.VerificationCodeExpiresAt,
		ResetCodeHash:             dbu.ResetCodeHash,
		ResetCodeIssuedAt:         dbu.ResetCodeIssuedAt,
		CreatedAt:                 dbu.CreatedAt,
		UpdatedAt:                 dbu.UpdatedAt,
	}
}
