package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-api/internal/logging"
	"github.com/taskhive/taskhive-api/internal/user"
)

const (
	// codeTTL is the validity window of a one-time code, for both
	// verification and password reset.
	codeTTL = 5 * time.Minute

	// resetCooldown is the minimum gap between reset-code requests for
	// the same account.
	resetCooldown = 60 * time.Second
)

// Service owns password hashing and verification, one-time code issuance
// and consumption, session token minting and password mutation. All secrets
// are injected at construction; the service never reads the environment.
type Service struct {
	users  UserStore
	mailer CodeMailer
	tokens TokenService
	logger *logging.Logger

	adminInviteToken string
	codeSecret       []byte
	tokenDuration    time.Duration

	// now is swappable for tests; defaults to time.Now.
	now func() time.Time
}

func NewService(
	users UserStore,
	mailer CodeMailer,
	tokens TokenService,
	logger *logging.Logger,
	adminInviteToken string,
	codeSecret []byte,
	tokenDuration time.Duration,
) *Service {
	return &Service{
		users:            users,
		mailer:           mailer,
		tokens:           tokens,
		logger:           logger,
		adminInviteToken: adminInviteToken,
		codeSecret:       codeSecret,
		tokenDuration:    tokenDuration,
		now:              time.Now,
	}
}

// Session is the result of a successful signin.
type Session struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
	Name      string `json:"name"`
	Role      string `json:"role"`
}

// NormalizeEmail lowercases and trims an address; emails are
// case-insensitive identities.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) < 5 || len(email) > 254 {
		return ErrInvalidEmailFormat
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmailFormat
	}
	return nil
}

// Register creates a new unverified account. The admin role is granted only
// when the supplied invite token exactly matches the configured secret.
func (s *Service) Register(ctx context.Context, name, email, password, inviteToken string) (*user.User, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	role := user.RoleMember
	if s.adminInviteToken != "" && inviteToken != "" &&
		subtle.ConstantTimeCompare([]byte(inviteToken), []byte(s.adminInviteToken)) == 1 {
		role = user.RoleAdmin
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, &user.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Verified:     false,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return newUser, nil
}

// Authenticate checks credentials and mints a session token carrying the
// user id, email and verification state. Unknown email and wrong password
// are indistinguishable from the outside.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existing, err := s.users.GetByEmail(ctx, email, true)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !CheckPassword(existing.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.CreateToken(existing.ID, existing.Email, existing.Verified, s.tokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &Session{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(s.tokenDuration.Seconds()),
		Name:      existing.Name,
		Role:      existing.Role,
	}, nil
}

// IssueVerificationCode generates a fresh 6-digit code, delivers it, and
// only after the mailer confirms acceptance persists its digest with a
// 5-minute expiry. A reissue overwrites any previous code.
func (s *Service) IssueVerificationCode(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	existing, err := s.users.GetByEmail(ctx, email, true)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if existing.Verified {
		return ErrAlreadyVerified
	}

	code, err := GenerateCode()
	if err != nil {
		return err
	}

	accepted, err := s.mailer.SendVerificationCode(ctx, existing.Email, code)
	if err != nil {
		return fmt.Errorf("failed to send verification code: %w", err)
	}
	if len(accepted) == 0 {
		// Nothing is persisted: a stored but undeliverable code would
		// block future attempts.
		s.logger.Warn("verification code not accepted by mail transport", "email", existing.Email)
		return ErrDeliveryFailed
	}

	digest := DigestCode(code, s.codeSecret)
	expiresAt := s.now().Add(codeTTL)
	existing.VerificationCodeHash = &digest
	existing.VerificationCodeExpiresAt = &expiresAt

	if err := s.users.Save(ctx, existing); err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	return nil
}

// ConsumeVerificationCode marks the account verified when the supplied code
// digest matches and the code has not expired. Missing, expired and
// mismatched codes all yield the same generic error. On success the
// verified flag flips and both code fields clear in one write.
func (s *Service) ConsumeVerificationCode(ctx context.Context, email, code string) error {
	email = NormalizeEmail(email)

	existing, err := s.users.GetByEmail(ctx, email, true)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if existing.Verified {
		return ErrAlreadyVerified
	}
	if !existing.HasPendingVerification() {
		return ErrInvalidCode
	}
	if s.now().After(*existing.VerificationCodeExpiresAt) {
		return ErrInvalidCode
	}
	if !CodeMatches(code, *existing.VerificationCodeHash, s.codeSecret) {
		return ErrInvalidCode
	}

	existing.Verified = true
	existing.VerificationCodeHash = nil
	existing.VerificationCodeExpiresAt = nil

	if err := s.users.Save(ctx, existing); err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}

	return nil
}

// ChangePassword replaces the password of an authenticated, verified user.
// The session must carry verified=true; the old password must match.
func (s *Service) ChangePassword(ctx context.Context, session *TokenClaims, oldPassword, newPassword string) error {
	if !session.Verified {
		return ErrNotVerified
	}

	userID, err := uuid.Parse(session.UserID)
	if err != nil {
		return ErrInvalidToken
	}

	existing, err := s.users.GetByIDWithSecrets(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if !CheckPassword(existing.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	existing.PasswordHash = passwordHash

	if err := s.users.Save(ctx, existing); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// IssueResetCode starts a password reset. No session is required; the flow
// exists to recover access. Requests inside the cool-down window are
// rejected before any mail is sent.
func (s *Service) IssueResetCode(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	existing, err := s.users.GetByEmail(ctx, email, true)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if existing.ResetCodeIssuedAt != nil && s.now().Sub(*existing.ResetCodeIssuedAt) < resetCooldown {
		return ErrCooldown
	}

	code, err := GenerateCode()
	if err != nil {
		return err
	}

	accepted, err := s.mailer.SendResetCode(ctx, existing.Email, code)
	if err != nil {
		return fmt.Errorf("failed to send reset code: %w", err)
	}
	if len(accepted) == 0 {
		s.logger.Warn("reset code not accepted by mail transport", "email", existing.Email)
		return ErrDeliveryFailed
	}

	digest := DigestCode(code, s.codeSecret)
	issuedAt := s.now()
	existing.ResetCodeHash = &digest
	existing.ResetCodeIssuedAt = &issuedAt

	if err := s.users.Save(ctx, existing); err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}

	return nil
}

// ConsumeResetCode sets a new password when the supplied code matches and
// was issued within the last five minutes. Success rehashes the password
// and clears the reset fields in one write.
func (s *Service) ConsumeResetCode(ctx context.Context, email, code, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	email = NormalizeEmail(email)

	existing, err := s.users.GetByEmail(ctx, email, true)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if !existing.HasPendingReset() {
		return ErrInvalidCode
	}
	if s.now().Sub(*existing.ResetCodeIssuedAt) > codeTTL {
		return ErrInvalidCode
	}
	if !CodeMatches(code, *existing.ResetCodeHash, s.codeSecret) {
		return ErrInvalidCode
	}

	passwordHash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	existing.PasswordHash = passwordHash
	existing.ResetCodeHash = nil
	existing.ResetCodeIssuedAt = nil

	if err := s.users.Save(ctx, existing); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	return nil
}

// GetProfile returns the caller's own record without secret fields.
func (s *Service) GetProfile(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	existing, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return existing, nil
}

// UpdateProfile changes the display name and/or profile image. Nil fields
// are left untouched.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, name *string, profileImageURL *string) (*user.User, error) {
	existing, err := s.users.GetByIDWithSecrets(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if name != nil && *name != "" {
		existing.Name = *name
	}
	if profileImageURL != nil {
		existing.ProfileImageURL = profileImageURL
	}

	if err := s.users.Save(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return existing, nil
}

// UpdateEmail changes the account email after re-checking the password.
func (s *Service) UpdateEmail(ctx context.Context, userID uuid.UUID, newEmail, password string) (*user.User, error) {
	newEmail = NormalizeEmail(newEmail)
	if err := validateEmail(newEmail); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByIDWithSecrets(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !CheckPassword(existing.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	existing.Email = newEmail

	if err := s.users.Save(ctx, existing); err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to update email: %w", err)
	}

	return existing, nil
}
