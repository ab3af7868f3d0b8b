package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error codes returned in the "code" field of error responses.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeSelfAction             = "SELF_ACTION"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeRequestNotFound        = "REQUEST_NOT_FOUND"
	CodeValidation             = "VALIDATION_ERROR"
	CodeNotBlocked             = "NOT_BLOCKED"
	CodePinLimitExceeded       = "PIN_LIMIT_EXCEEDED"
	CodeInternal               = "INTERNAL_ERROR"
	CodeConflictRetryExhausted = "CONFLICT_RETRY_EXHAUSTED"

	CodeAlreadyRequested = "ALREADY_REQUESTED"
	CodeAlreadyReported  = "ALREADY_REPORTED"
	CodeAlreadyMarked    = "ALREADY_MARKED"
	CodeAlreadyLiked     = "ALREADY_LIKED"
	CodeAlreadySaved     = "ALREADY_SAVED"
	CodeDuplicateUser    = "DUPLICATE_USER"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError reports a missing user, post, request or record.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

// NewSelfActionError reports an operation that targets the acting user.
func NewSelfActionError(message string) *AppError {
	return &AppError{
		Code:    CodeSelfAction,
		Message: message,
	}
}

// NewConflictError reports a benign duplicate such as an existing report.
func NewConflictError(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
	}
}

// NewRequestNotFoundError is returned when accepting, declining or cancelling
// a follow request that does not exist.
func NewRequestNotFoundError() *AppError {
	return &AppError{
		Code:    CodeRequestNotFound,
		Message: "Follow request not found",
	}
}

func NewNotBlockedError() *AppError {
	return &AppError{
		Code:    CodeNotBlocked,
		Message: "User is not blocked",
	}
}

func NewPinLimitError(limit int) *AppError {
	return &AppError{
		Code:    CodePinLimitExceeded,
		Message: fmt.Sprintf("You can only pin up to %d posts", limit),
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    CodeInternal,
		Message: "Internal server error",
		Err:     err,
	}
}

// HasCode reports whether err wraps an AppError with the given code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// StatusFor maps an error to the HTTP status the API returns for it.
func StatusFor(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeUnauthorized, CodeRequestNotFound:
		return fiber.StatusUnauthorized
	case CodeSelfAction, CodeValidation, CodeNotBlocked, CodePinLimitExceeded,
		CodeAlreadyRequested, CodeAlreadyReported, CodeAlreadyMarked,
		CodeAlreadyLiked, CodeAlreadySaved, CodeDuplicateUser:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// RespondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	var appErr *AppError
	if errors.As(err, &appErr) {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
