package httputil

// Machine-readable error codes returned alongside error messages so clients
// can branch without parsing English text.
const (
	CodeInvalidRequestBody = "invalid_request_body"
	CodeInternalError      = "internal_error"
	CodeTooManyRequests    = "too_many_requests"
	CodeCooldownActive     = "cooldown_active"

	CodeValidationFailed   = "validation_failed"
	CodeInvalidEmailFormat = "invalid_email_format"
	CodeEmailAlreadyExists = "email_already_exists"
	CodeInvalidCredentials = "invalid_credentials"
	CodeAccountNotVerified = "account_not_verified"
	CodeAlreadyVerified    = "already_verified"
	CodeInvalidCode        = "invalid_code"
	CodeDeliveryFailed     = "delivery_failed"
	CodeUserNotFound       = "user_not_found"

	CodeMissingAuth        = "missing_auth"
	CodeInvalidAuthHeader  = "invalid_auth_header"
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodeInvalidTokenUserID = "invalid_token_user_id"
	CodeAdminOnly          = "admin_only"

	CodeTaskNotFound   = "task_not_found"
	CodeNotTaskMember  = "not_task_member"
	CodeInvalidTaskRef = "invalid_task_ref"
)
