package apperrors

import "errors"

// Common errors
var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrConflict         = errors.New("conflict")
	ErrBadRequest       = errors.New("bad request")
	ErrValidationFailed = errors.New("validation failed")
	ErrPermissionDenied = errors.New("permission denied")
)

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("token not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// Profile and exam errors
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrExamNotFound    = errors.New("exam not found")
	ErrNotAWriter      = errors.New("target profile is not a writer")
)

// Match request errors
var (
	ErrMatchRequestNotFound = errors.New("match request not found")
	// ErrDuplicatePending is returned when the student already has a pending
	// request to the same writer.
	ErrDuplicatePending = errors.New("a pending request to this writer already exists")
	// ErrInvalidTransition is returned when the status change is not in the
	// transition table for the acting role.
	ErrInvalidTransition = errors.New("status transition not allowed")
	// ErrStaleStatus is returned when the row changed between read and write.
	ErrStaleStatus = errors.New("match request status changed concurrently")
)

// NewResourceNotFoundError wraps ErrResourceNotFound with a message.
func NewResourceNotFoundError(message string) error {
	return &CustomError{Err: ErrResourceNotFound, Message: message}
}

// NewConflictError wraps ErrConflict with a message.
func NewConflictError(message string) error {
	return &CustomError{Err: ErrConflict, Message: message}
}

// NewForbiddenError wraps ErrPermissionDenied with a message.
func NewForbiddenError(message string) error {
	return &CustomError{Err: ErrPermissionDenied, Message: message}
}

// NewBadRequestError wraps ErrBadRequest with a message.
func NewBadRequestError(message string) error {
	return &CustomError{Err: ErrBadRequest, Message: message}
}

// NewValidationError wraps ErrValidationFailed and carries per-field messages.
func NewValidationError(fields map[string]string) error {
	details := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		details[k] = v
	}
	return (&CustomError{Err: ErrValidationFailed, Message: "validation failed"}).WithDetails(details)
}

// Is reports whether err matches target or any of errList.
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}
	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// CustomError carries a user-facing message and optional details on top of a
// sentinel error.
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewCustomError creates a CustomError around err.
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{Err: err, Message: message}
}

// WithDetails attaches context details.
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode overrides the API error code chosen by the error middleware.
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
