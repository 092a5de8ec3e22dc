// Package errors defines the application error type returned across service
// boundaries and rendered by the HTTP layer as the error envelope
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode is the stable, machine-readable part of an error
type ErrorCode string

const (
	CodeBadRequest           ErrorCode = "BAD_REQUEST"
	CodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	CodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	CodeInvalidCredentials   ErrorCode = "INVALID_CREDENTIALS"
	CodeSubscriptionRequired ErrorCode = "SUBSCRIPTION_REQUIRED"
	CodeForbidden            ErrorCode = "FORBIDDEN"
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodeRecipeNotFound       ErrorCode = "RECIPE_NOT_FOUND"
	CodeUserNotFound         ErrorCode = "USER_NOT_FOUND"
	CodeMealPlanNotFound     ErrorCode = "MEAL_PLAN_NOT_FOUND"
	CodeSubscriptionNotFound ErrorCode = "SUBSCRIPTION_NOT_FOUND"
	CodeConflict             ErrorCode = "CONFLICT"
	CodeEmailAlreadyExists   ErrorCode = "EMAIL_ALREADY_EXISTS"
	CodeTooManyRequests      ErrorCode = "TOO_MANY_REQUESTS"
	CodeInternal             ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"
	CodeBillingError         ErrorCode = "BILLING_ERROR"
	CodeServiceUnavailable   ErrorCode = "SERVICE_UNAVAILABLE"
)

// statusByCode maps codes to HTTP statuses; unknown codes are 500
var statusByCode = map[ErrorCode]int{
	CodeBadRequest:           http.StatusBadRequest,
	CodeValidationFailed:     http.StatusBadRequest,
	CodeUnauthorized:         http.StatusUnauthorized,
	CodeInvalidCredentials:   http.StatusUnauthorized,
	CodeSubscriptionRequired: http.StatusPaymentRequired,
	CodeForbidden:            http.StatusForbidden,
	CodeNotFound:             http.StatusNotFound,
	CodeRecipeNotFound:       http.StatusNotFound,
	CodeUserNotFound:         http.StatusNotFound,
	CodeMealPlanNotFound:     http.StatusNotFound,
	CodeSubscriptionNotFound: http.StatusNotFound,
	CodeConflict:             http.StatusConflict,
	CodeEmailAlreadyExists:   http.StatusConflict,
	CodeTooManyRequests:      http.StatusTooManyRequests,
	CodeExternalServiceError: http.StatusBadGateway,
	CodeBillingError:         http.StatusBadGateway,
	CodeServiceUnavailable:   http.StatusServiceUnavailable,
}

const (
	metaRetryAfter       = "retry_after_seconds"
	metaValidationErrors = "validation_errors"
)

// AppError carries a code, a message safe to show users, optional details
// and metadata, and the underlying cause which is never serialized
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Cause    error                  `json:"-"`
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString(" (" + e.Details + ")")
	}
	if e.Cause != nil {
		b.WriteString(": " + e.Cause.Error())
	}
	return b.String()
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode is the HTTP status the error renders with
func (e *AppError) StatusCode() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RetryAfter is the back-off hint of a rate limit error, zero otherwise
func (e *AppError) RetryAfter() time.Duration {
	secs, _ := e.Metadata[metaRetryAfter].(int)
	return time.Duration(secs) * time.Second
}

// WithMetadata sets a metadata key and returns e
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{}, 1)
	}
	e.Metadata[key] = value
	return e
}

// WithCause records the underlying error and returns e
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates an error with an explicit code
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{Code: code, Message: message, Details: details}
}

func orDefault(message, fallback string) string {
	if message == "" {
		return fallback
	}
	return message
}

func NewBadRequestError(message string) *AppError {
	return NewAppError(CodeBadRequest, message, "")
}

func NewValidationError(details string) *AppError {
	return NewAppError(CodeValidationFailed, "Validation failed", details)
}

func NewUnauthorizedError(message string) *AppError {
	return NewAppError(CodeUnauthorized, orDefault(message, "Authentication required"), "")
}

func NewForbiddenError(message string) *AppError {
	return NewAppError(CodeForbidden, orDefault(message, "Access forbidden"), "")
}

// NewNotFoundError names the missing resource in the message, e.g. "Goal not found"
func NewNotFoundError(resource string) *AppError {
	if resource == "" {
		return NewAppError(CodeNotFound, "Resource not found", "")
	}
	return NewAppError(CodeNotFound, strings.ToUpper(resource[:1])+resource[1:]+" not found", "")
}

func NewConflictError(message string) *AppError {
	return NewAppError(CodeConflict, message, "")
}

func NewInternalError(message string) *AppError {
	return NewAppError(CodeInternal, orDefault(message, "An unexpected error occurred"), "")
}

// NewUnavailableError reports a feature that is switched off or temporarily down
func NewUnavailableError(message string) *AppError {
	return NewAppError(CodeServiceUnavailable, orDefault(message, "Service unavailable"), "")
}

// NewDatabaseError hides the storage failure behind a generic message
func NewDatabaseError(operation string, cause error) *AppError {
	return NewAppError(CodeDatabaseError, "Database operation failed", "Failed to "+operation).WithCause(cause)
}

func NewExternalServiceError(service string, cause error) *AppError {
	return NewAppError(CodeExternalServiceError, "External service error", "Failed to communicate with "+service).
		WithCause(cause)
}

func NewBillingError(operation string, cause error) *AppError {
	return NewAppError(CodeBillingError, "Billing provider error", "Failed to "+operation).WithCause(cause)
}

func NewRecipeNotFoundError(recipeID string) *AppError {
	return NewAppError(CodeRecipeNotFound, "Recipe not found", "").WithMetadata("recipe_id", recipeID)
}

func NewUserNotFoundError(userID string) *AppError {
	return NewAppError(CodeUserNotFound, "User not found", "").WithMetadata("user_id", userID)
}

func NewMealPlanNotFoundError(planID string) *AppError {
	return NewAppError(CodeMealPlanNotFound, "Meal plan not found", "").WithMetadata("meal_plan_id", planID)
}

func NewSubscriptionNotFoundError(userID string) *AppError {
	return NewAppError(CodeSubscriptionNotFound, "Subscription not found", "No billing account exists for this user").
		WithMetadata("user_id", userID)
}

// NewEmailAlreadyExistsError keeps the address out of the message
func NewEmailAlreadyExistsError(email string) *AppError {
	return NewAppError(CodeEmailAlreadyExists, "Email already registered", "").WithMetadata("email", email)
}

// NewInvalidCredentialsError does not say which of email or password was wrong
func NewInvalidCredentialsError() *AppError {
	return NewAppError(CodeInvalidCredentials, "Invalid email or password", "")
}

// NewSubscriptionRequiredError is returned when a premium feature is used without an active plan
func NewSubscriptionRequiredError(feature string) *AppError {
	return NewAppError(CodeSubscriptionRequired, "Subscription required",
		fmt.Sprintf("An active subscription is required to use %s", feature)).
		WithMetadata("feature", feature)
}

// NewTooManyRequestsError rounds retryAfter up to whole seconds, minimum one
func NewTooManyRequestsError(retryAfter time.Duration) *AppError {
	secs := int((retryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return NewAppError(CodeTooManyRequests, "Too many requests", "Rate limit exceeded, slow down").
		WithMetadata(metaRetryAfter, secs)
}

// Wrap returns the AppError in err's chain, or an internal error carrying
// message and err as its cause
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return NewInternalError(message).WithCause(err)
}

// As finds the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err's chain holds an AppError with code
func Is(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// CodeOf is the code of err, CodeInternal for non-application errors
func CodeOf(err error) ErrorCode {
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return CodeInternal
}

// ValidationError describes one invalid input field
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value,omitempty"`
	Tag     string      `json:"tag"`
	Message string      `json:"message"`
}

// ValidationErrors joins field messages into one error
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(v))
	for i, e := range v {
		messages[i] = e.Message
	}
	return strings.Join(messages, "; ")
}

// NewValidationErrors lists every failing field under the validation_errors metadata key
func NewValidationErrors(fields []ValidationError) *AppError {
	verrs := ValidationErrors(fields)
	return NewValidationError(verrs.Error()).WithMetadata(metaValidationErrors, verrs)
}

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails is the body of the error envelope
type ErrorDetails struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// ToErrorResponse builds the envelope for err. Internal details are dropped
// for server-side failures.
func ToErrorResponse(err *AppError, requestID string) ErrorResponse {
	details := ErrorDetails{
		Code:      err.Code,
		Message:   err.Message,
		Details:   err.Details,
		Metadata:  err.Metadata,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	}
	if err.StatusCode() == http.StatusInternalServerError {
		details.Details = ""
	}
	return ErrorResponse{Error: details}
}
