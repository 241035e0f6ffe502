// Package errors provides the application error type used by every service
// and handler. Errors coming back from the remote finance backend are
// translated into AppErrors with FromBackend so callers never branch on
// transport details.
package errors

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"

	"fintrack/internal/backend"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError with the same code, so sentinels
// match their wrapped copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication errors.
var (
	ErrUnauthorized   = &AppError{Code: "UNAUTHORIZED", Message: "Please log in", StatusCode: http.StatusUnauthorized}
	ErrSessionExpired = &AppError{Code: "SESSION_EXPIRED", Message: "Your session has expired, please log in again", StatusCode: http.StatusUnauthorized}
	ErrInvalidAPIKey  = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
)

// General errors.
var (
	ErrInvalidInput       = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound           = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer     = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
	ErrServiceUnavailable = &AppError{Code: "SERVICE_UNAVAILABLE", Message: "Service unavailable", StatusCode: http.StatusServiceUnavailable}
	ErrBackend            = &AppError{Code: "BACKEND_ERROR", Message: "The finance service returned an error", StatusCode: http.StatusBadGateway}
)

// Upload errors.
var (
	ErrInvalidImageType      = &AppError{Code: "INVALID_IMAGE_TYPE", Message: "Please select an image file", StatusCode: http.StatusBadRequest}
	ErrImageTooLarge         = &AppError{Code: "IMAGE_TOO_LARGE", Message: "Image must be 10MB or smaller", StatusCode: http.StatusRequestEntityTooLarge}
	ErrNoTransactionsFound   = &AppError{Code: "NO_TRANSACTIONS_FOUND", Message: "No transactions found in the image", StatusCode: http.StatusUnprocessableEntity}
	ErrInvalidState          = &AppError{Code: "INVALID_STATE", Message: "Operation not allowed in the current state", StatusCode: http.StatusConflict}
	ErrUploadNotFound        = &AppError{Code: "UPLOAD_NOT_FOUND", Message: "Upload session not found", StatusCode: http.StatusNotFound}
	ErrItemNotFound          = &AppError{Code: "ITEM_NOT_FOUND", Message: "Transaction item not found", StatusCode: http.StatusNotFound}
	ErrConfirmationRequired  = &AppError{Code: "CONFIRMATION_REQUIRED", Message: "Deleting an item requires confirmation", StatusCode: http.StatusPreconditionRequired}
	ErrNothingToSave         = &AppError{Code: "NOTHING_TO_SAVE", Message: "There are no transactions to save", StatusCode: http.StatusBadRequest}
	ErrCategoryNotFound      = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrFormNotFound          = &AppError{Code: "FORM_NOT_FOUND", Message: "Form not found", StatusCode: http.StatusNotFound}
	ErrCategorizeUnavailable = &AppError{Code: "CATEGORIZE_UNAVAILABLE", Message: "Auto-categorize needs at least 3 characters and no accepted suggestion", StatusCode: http.StatusConflict}
)

// FromBackend translates an error returned by the backend client into an
// AppError. AppErrors pass through unchanged.
func FromBackend(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	if stderrors.Is(err, backend.ErrSessionExpired) {
		return Wrap(ErrSessionExpired, err)
	}

	var apiErr *backend.APIError
	if stderrors.As(err, &apiErr) {
		msg := apiErr.Message
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized:
			return Wrap(ErrUnauthorized, err)
		case apiErr.StatusCode == http.StatusNotFound:
			return withInternal(ErrNotFound, msg, err)
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return withInternal(ErrInvalidInput, msg, err)
		default:
			return withInternal(ErrBackend, msg, err)
		}
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return withInternal(ErrServiceUnavailable, "The request timed out, please try again", err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return withInternal(ErrServiceUnavailable, "The finance service could not be reached", err)
	}

	return Wrap(ErrInternalServer, err)
}

func withInternal(sentinel *AppError, message string, internal error) *AppError {
	e := Wrap(sentinel, internal)
	if message != "" {
		e.Message = message
	}
	return e
}
