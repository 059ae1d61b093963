package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/taskboard/taskboard-server/internal/errors"
	"github.com/taskboard/taskboard-server/internal/validation"
)

// internalErrorMessage is the only message clients see for unexpected failures.
const internalErrorMessage = "Internal server error"

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// ErrorOptions configures RegisterErrorHandler.
type ErrorOptions struct {
	// ExposeDetails includes the cause of 500 responses in the errors field.
	ExposeDetails bool
	// Logger receives every 500 with its cause.
	Logger *slog.Logger
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler(opts ErrorOptions) {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		return newAPIError(opts, status, message, errs...)
	}
}

func newAPIError(opts ErrorOptions, status int, message string, errs ...error) *APIError {
	// Check if any of the errors are domain errors
	for _, err := range errs {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) && domainErr.Code != domainerrors.CodeInternal {
			return fromDomain(domainErr)
		}
	}

	// Huma reports request schema failures as 422; clients get 400 with one entry per field.
	if status == http.StatusUnprocessableEntity || status == http.StatusBadRequest {
		fields := schemaFieldErrors(errs)
		msg := message
		if len(fields) > 0 {
			msg = fields[0].Message
		}
		return &APIError{
			status:  http.StatusBadRequest,
			Code:    string(domainerrors.CodeValidation),
			Message: msg,
			Details: fields,
		}
	}

	if status >= http.StatusInternalServerError {
		if opts.Logger != nil {
			opts.Logger.Error("request failed", "status", status, "message", message, "error", errors.Join(errs...))
		}
		e := &APIError{
			status:  status,
			Code:    string(domainerrors.CodeInternal),
			Message: internalErrorMessage,
		}
		if opts.ExposeDetails && len(errs) > 0 {
			details := make([]string, 0, len(errs))
			for _, err := range errs {
				details = append(details, err.Error())
			}
			e.Details = details
		}
		return e
	}

	return &APIError{
		status:  status,
		Code:    statusToCode(status),
		Message: message,
	}
}

func fromDomain(e *domainerrors.Error) *APIError {
	return &APIError{
		status:  e.HTTPStatus(),
		Code:    string(e.Code),
		Message: e.Message,
		Details: e.Details,
	}
}

// schemaFieldErrors converts huma's error details to field errors.
func schemaFieldErrors(errs []error) []validation.FieldError {
	fields := make([]validation.FieldError, 0, len(errs))
	for _, err := range errs {
		var detail *huma.ErrorDetail
		if !errors.As(err, &detail) {
			continue
		}
		field := strings.TrimPrefix(strings.TrimPrefix(detail.Location, "body."), "body")
		if field == "" {
			field = detail.Location
		}
		fields = append(fields, validation.FieldError{
			Field:   field,
			Message: detail.Message,
		})
	}
	return fields
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodeForbidden)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	default:
		return string(domainerrors.CodeInternal)
	}
}
