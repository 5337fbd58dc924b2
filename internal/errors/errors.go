package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrRecordNotFound is returned when a weather record does not exist or is not owned by the caller.
	ErrRecordNotFound = errors.New("weather record not found")
	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists is returned when the username or email is taken.
	ErrUserAlreadyExists = errors.New("user with this username or email already exists")
	// ErrInvalidCredentials is returned for any failed login, whatever the cause.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLocationNotFound is returned when the geocoder has no candidate for a place name.
	ErrLocationNotFound = errors.New("location not found")
	// ErrUpstream is returned for any other weather API failure.
	ErrUpstream = errors.New("weather service unavailable")
	// ErrMissingAPIKey is returned when no weather API key is configured.
	ErrMissingAPIKey = errors.New("weather API key is not configured")
	// ErrUnsupportedFormat is returned for unknown export formats.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// ValidationError reports the first violated input rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a field-specific validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
	Detail  string            `json:"detail,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Details    map[string]string
	Internal   error
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Internal
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Code:    e.Code,
		Details: e.Details,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
// The original error is kept as Internal so it can be logged server-side.
func MapErrorToHTTP(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var mapped *HTTPError
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		mapped = NewHTTPError(http.StatusBadRequest, validationErr.Message, "VALIDATION_ERROR")
		if validationErr.Field != "" {
			mapped.Details = map[string]string{"field": validationErr.Field}
		}
	case errors.Is(err, ErrRecordNotFound):
		mapped = NewHTTPError(http.StatusNotFound, ErrRecordNotFound.Error(), "RECORD_NOT_FOUND")
	case errors.Is(err, ErrUserNotFound):
		mapped = NewHTTPError(http.StatusNotFound, ErrUserNotFound.Error(), "USER_NOT_FOUND")
	case errors.Is(err, ErrUserAlreadyExists):
		mapped = NewHTTPError(http.StatusBadRequest, ErrUserAlreadyExists.Error(), "USER_ALREADY_EXISTS")
	case errors.Is(err, ErrInvalidCredentials):
		mapped = NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrUnsupportedFormat):
		mapped = NewHTTPError(http.StatusBadRequest, ErrUnsupportedFormat.Error(), "UNSUPPORTED_FORMAT")
	case errors.Is(err, ErrLocationNotFound):
		mapped = NewHTTPError(http.StatusInternalServerError, ErrLocationNotFound.Error(), "LOCATION_NOT_FOUND")
	case errors.Is(err, ErrUpstream), errors.Is(err, ErrMissingAPIKey):
		mapped = NewHTTPError(http.StatusInternalServerError, "failed to fetch weather data", "UPSTREAM_ERROR")
	default:
		mapped = NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
	mapped.Internal = err
	return mapped
}
