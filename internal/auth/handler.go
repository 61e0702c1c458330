package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/taskhive/taskhive-api/internal/httputil"
	"github.com/taskhive/taskhive-api/internal/logging"
	"github.com/taskhive/taskhive-api/internal/ratelimit"
	"github.com/taskhive/taskhive-api/internal/user"
)

// Handler contains HTTP handlers for authentication and profile endpoints
type Handler struct {
	service       *Service
	rateLimiter   *ratelimit.Limiter
	logger        *logging.Logger
	isProduction  bool
	tokenDuration time.Duration
}

func NewHandler(service *Service, rateLimiter *ratelimit.Limiter, logger *logging.Logger, isProduction bool, tokenDuration time.Duration) *Handler {
	return &Handler{
		service:       service,
		rateLimiter:   rateLimiter,
		logger:        logger,
		isProduction:  isProduction,
		tokenDuration: tokenDuration,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	AdminInviteToken string `json:"admin_invite_token,omitempty"`
}

// SignInRequest represents the signin request body
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EmailRequest carries just an email address
type EmailRequest struct {
	Email string `json:"email"`
}

// VerifyCodeRequest represents the code verification request body
type VerifyCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ChangePasswordRequest represents the password change request body
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ResetPasswordRequest represents the reset confirmation request body
type ResetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// UpdateProfileRequest represents a profile update request body
type UpdateProfileRequest struct {
	Name            *string `json:"name,omitempty"`
	ProfileImageURL *string `json:"profile_image_url,omitempty"`
}

// UpdateEmailRequest represents an email change request body
type UpdateEmailRequest struct {
	NewEmail string `json:"new_email"`
	Password string `json:"password"`
}

// RegisterResponse represents the registration response
type RegisterResponse struct {
	User    *user.User `json:"user"`
	Message string     `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create a new account. A matching admin invite token grants the admin role.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration details"
// @Success      201 {object} RegisterResponse
// @Failure      400 {object} ErrorResponse "Invalid request or validation error"
// @Failure      409 {object} ErrorResponse "Email already exists"
// @Failure      429 {object} ErrorResponse "Too many requests"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /api/auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limitByIP(w, r, "register") {
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	newUser, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password, req.AdminInviteToken)
	if err != nil {
		h.writeServiceError(w, logger, "registration failed", err)
		return
	}

	logger.Info("user registered", "user_id", newUser.ID, "role", newUser.Role)

	respondJSON(w, RegisterResponse{
		User:    newUser,
		Message: "Your account has been created successfully.",
	}, http.StatusCreated)
}

// SignIn handles user signin
// @Summary      Sign in
// @Description  Authenticate and receive a session token valid for six days.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignInRequest true "Credentials"
// @Success      200 {object} Session
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      401 {object} ErrorResponse "Invalid credentials"
// @Failure      429 {object} ErrorResponse "Too many requests"
// @Router       /api/auth/signin [post]
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limitByIP(w, r, "signin") {
		return
	}

	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid signin request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	session, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, logger, "signin failed", err)
		return
	}

	logger.Info("user signed in")

	if ShouldUseCookies(r) {
		SetSessionCookie(w, session.Token, h.isProduction, h.tokenDuration)
	}
	respondJSON(w, session, http.StatusOK)
}

// SignOut handles signout
// @Summary      Sign out
// @Description  Clear the session cookie. Tokens are stateless; clients discard theirs.
// @Tags         auth
// @Produce      json
// @Success      200 {object} map[string]string
// @Security     BearerAuth
// @Router       /api/auth/signout [post]
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	ClearSessionCookie(w, h.isProduction)
	respondJSON(w, map[string]string{"message": "logged out successfully"}, http.StatusOK)
}

// SendVerificationCode issues a fresh email verification code
// @Summary      Send verification code
// @Description  Email a 6-digit code valid for five minutes. A reissue overwrites the previous code.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body EmailRequest true "Email address"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Delivery failed"
// @Failure      404 {object} ErrorResponse "Unknown email"
// @Failure      409 {object} ErrorResponse "Already verified"
// @Failure      429 {object} ErrorResponse "Cooldown active"
// @Security     BearerAuth
// @Router       /api/auth/verification/send [post]
func (h *Handler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	email := NormalizeEmail(req.Email)

	cooling, err := h.rateLimiter.CheckEmailCooldown(r.Context(), email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if cooling {
		logger.Warn("verification code requested during cooldown")
		respondError(w, "a code was sent recently, please wait before requesting another", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return
	}

	if err := h.service.IssueVerificationCode(r.Context(), email); err != nil {
		h.writeServiceError(w, logger, "send verification code failed", err)
		return
	}

	if err := h.rateLimiter.SetEmailCooldown(r.Context(), email); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}

	respondJSON(w, map[string]string{"message": "verification code sent"}, http.StatusOK)
}

// VerifyVerificationCode consumes an email verification code
// @Summary      Verify account
// @Description  Consume a verification code; on success the account becomes verified.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body VerifyCodeRequest true "Email and code"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Invalid or expired code"
// @Failure      404 {object} ErrorResponse "Unknown email"
// @Failure      409 {object} ErrorResponse "Already verified"
// @Security     BearerAuth
// @Router       /api/auth/verification/verify [post]
func (h *Handler) VerifyVerificationCode(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req VerifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.ConsumeVerificationCode(r.Context(), req.Email, req.Code); err != nil {
		h.writeServiceError(w, logger, "verification failed", err)
		return
	}

	logger.Info("account verified")
	respondJSON(w, map[string]string{"message": "your account has been verified"}, http.StatusOK)
}

// ChangePassword changes the password of the authenticated user
// @Summary      Change password
// @Description  Replace the password. Requires a verified session and the current password.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ChangePasswordRequest true "Old and new password"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Validation error"
// @Failure      401 {object} ErrorResponse "Wrong old password"
// @Failure      403 {object} ErrorResponse "Account not verified"
// @Security     BearerAuth
// @Router       /api/auth/change-password [patch]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	claims, ok := GetClaimsFromContext(r.Context())
	if !ok {
		respondError(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims, req.OldPassword, req.NewPassword); err != nil {
		h.writeServiceError(w, logger, "password change failed", err)
		return
	}

	logger.Info("password changed")
	respondJSON(w, map[string]string{"message": "the password has been updated"}, http.StatusOK)
}

// ForgotPassword issues a password reset code
// @Summary      Request password reset code
// @Description  Email a reset code. At most one request per minute per account.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body EmailRequest true "Email address"
// @Success      200 {object} map[string]string
// @Failure      404 {object} ErrorResponse "Unknown email"
// @Failure      429 {object} ErrorResponse "Cooldown active"
// @Router       /api/auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limitByIP(w, r, "forgot-password") {
		return
	}

	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.IssueResetCode(r.Context(), req.Email); err != nil {
		h.writeServiceError(w, logger, "reset code request failed", err)
		return
	}

	respondJSON(w, map[string]string{"message": "password reset code sent to your email"}, http.StatusOK)
}

// ResetPassword consumes a reset code and sets a new password
// @Summary      Reset password
// @Description  Consume a reset code and set a new password in one step.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Email, code and new password"
// @Success      200 {object} map[string]string
// @Failure      400 {object} ErrorResponse "Invalid code or validation error"
// @Failure      404 {object} ErrorResponse "Unknown email"
// @Router       /api/auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := h.service.ConsumeResetCode(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.writeServiceError(w, logger, "password reset failed", err)
		return
	}

	logger.Info("password reset")
	respondJSON(w, map[string]string{"message": "password has been reset successfully"}, http.StatusOK)
}

// GetProfile returns the authenticated user's record
// @Summary      Get own profile
// @Tags         profile
// @Produce      json
// @Success      200 {object} user.User
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /api/auth/profile [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	u, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, logger, "profile read failed", err)
		return
	}

	respondJSON(w, u, http.StatusOK)
}

// UpdateProfile updates display name and profile image
// @Summary      Update own profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        request body UpdateProfileRequest true "Fields to change"
// @Success      200 {object} user.User
// @Security     BearerAuth
// @Router       /api/auth/profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), userID, req.Name, req.ProfileImageURL)
	if err != nil {
		h.writeServiceError(w, logger, "profile update failed", err)
		return
	}

	respondJSON(w, u, http.StatusOK)
}

// UpdateEmail changes the account email
// @Summary      Change account email
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        request body UpdateEmailRequest true "New email and current password"
// @Success      200 {object} user.User
// @Failure      401 {object} ErrorResponse "Wrong password"
// @Failure      409 {object} ErrorResponse "Email already in use"
// @Security     BearerAuth
// @Router       /api/auth/profile/email [put]
func (h *Handler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req UpdateEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	u, err := h.service.UpdateEmail(r.Context(), userID, req.NewEmail, req.Password)
	if err != nil {
		h.writeServiceError(w, logger, "email update failed", err)
		return
	}

	logger.Info("email updated", "user_id", u.ID)
	respondJSON(w, u, http.StatusOK)
}

// limitByIP applies the fixed-window IP limit for the given purpose and
// writes a 429 when exceeded. Limiter errors are logged and ignored so a
// Redis outage never locks out legitimate traffic.
func (h *Handler) limitByIP(w http.ResponseWriter, r *http.Request, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())
	ip := getClientIP(r)

	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
		return false
	}
	if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return true
	}

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	return false
}

// writeServiceError maps service errors to HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, logger *logging.Logger, context string, err error) {
	switch {
	case errors.Is(err, ErrInvalidEmailFormat):
		logger.Warn(context + ": invalid email format")
		respondError(w, err.Error(), httputil.CodeInvalidEmailFormat, http.StatusBadRequest)
	case isValidationError(err):
		logger.Warn(context+": validation error", "error", err.Error())
		respondError(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidCredentials):
		logger.Warn(context + ": invalid credentials")
		respondError(w, err.Error(), httputil.CodeInvalidCredentials, http.StatusUnauthorized)
	case errors.Is(err, ErrEmailExists):
		logger.Warn(context + ": email already exists")
		respondError(w, err.Error(), httputil.CodeEmailAlreadyExists, http.StatusConflict)
	case errors.Is(err, ErrAlreadyVerified):
		logger.Warn(context + ": already verified")
		respondError(w, err.Error(), httputil.CodeAlreadyVerified, http.StatusConflict)
	case errors.Is(err, ErrUserNotFound):
		logger.Warn(context + ": user not found")
		respondError(w, err.Error(), httputil.CodeUserNotFound, http.StatusNotFound)
	case errors.Is(err, ErrNotVerified):
		logger.Warn(context + ": account not verified")
		respondError(w, err.Error(), httputil.CodeAccountNotVerified, http.StatusForbidden)
	case errors.Is(err, ErrInvalidCode):
		logger.Warn(context + ": invalid code")
		respondError(w, err.Error(), httputil.CodeInvalidCode, http.StatusBadRequest)
	case errors.Is(err, ErrCooldown):
		logger.Warn(context + ": cooldown active")
		respondError(w, err.Error(), httputil.CodeCooldownActive, http.StatusTooManyRequests)
	case errors.Is(err, ErrDeliveryFailed):
		logger.Warn(context + ": delivery failed")
		respondError(w, err.Error(), httputil.CodeDeliveryFailed, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrExpiredToken):
		logger.Warn(context + ": bad token")
		respondError(w, err.Error(), httputil.CodeInvalidToken, http.StatusUnauthorized)
	default:
		logger.Error(context+": internal error", "error", err.Error())
		respondError(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

func isValidationError(err error) bool {
	for _, v := range []error{
		ErrEmailRequired, ErrInvalidEmailFormat,
		ErrPasswordRequired, ErrPasswordTooShort, ErrPasswordTooLong,
		ErrPasswordNoLower, ErrPasswordNoUpper, ErrPasswordNoDigit,
		ErrPasswordNoSymbol, ErrPasswordBadChars,
	} {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (behind proxy/load balancer)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP header
	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fallback to RemoteAddr
	ip := r.RemoteAddr
	// RemoteAddr format is "IP:port", extract just the IP
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
