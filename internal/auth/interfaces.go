package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-api/internal/user"
)

// TokenService defines the interface for session token creation and
// validation. Implementations include JWTService (HS256) and PasetoService
// (PASETO v4.local).
type TokenService interface {
	CreateToken(userID uuid.UUID, email string, verified bool, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// TokenClaims represents the claims carried by a session token.
type TokenClaims struct {
	UserID    string    `json:"user_id"` // UUID stored as string in token
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// UserStore is the credential store the service depends on. Save must
// persist all field changes of one record atomically.
type UserStore interface {
	Create(ctx context.Context, u *user.User) (*user.User, error)
	GetByEmail(ctx context.Context, email string, withSecrets bool) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByIDWithSecrets(ctx context.Context, id uuid.UUID) (*user.User, error)
	Save(ctx context.Context, u *user.User) error
}

// CodeMailer delivers one-time codes and reports which recipients the
// mail transport accepted. An empty accepted list means the code must not
// be persisted.
type CodeMailer interface {
	SendVerificationCode(ctx context.Context, toEmail, code string) (accepted []string, err error)
	SendResetCode(ctx context.Context, toEmail, code string) (accepted []string, err error)
}
