package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// NewHTTPErrorHandler renders every handler error as an ErrorResponse.
// Server errors are logged with their cause; the cause reaches the client
// only when exposeDetail is set (non-production environments).
func NewHTTPErrorHandler(logger *slog.Logger, exposeDetail bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body, cause := resolve(err)

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				slog.String("method", c.Request().Method),
				slog.String("path", c.Path()),
				slog.Int("status", status),
				slog.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
				slog.Any("error", cause),
			)
			if exposeDetail && cause != nil {
				body.Detail = cause.Error()
			}
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error("write error response", slog.Any("error", writeErr))
		}
	}
}

func resolve(err error) (int, ErrorResponse, error) {
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		switch msg := echoErr.Message.(type) {
		case ErrorResponse:
			return echoErr.Code, msg, echoErr.Internal
		case *ErrorResponse:
			return echoErr.Code, *msg, echoErr.Internal
		case string:
			return echoErr.Code, ErrorResponse{Error: msg, Code: codeForStatus(echoErr.Code)}, echoErr.Internal
		default:
			return echoErr.Code, ErrorResponse{Error: fmt.Sprint(msg), Code: codeForStatus(echoErr.Code)}, echoErr.Internal
		}
	}

	httpErr := MapErrorToHTTP(err)
	return httpErr.StatusCode, httpErr.ToErrorResponse(), httpErr.Internal
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		if status >= http.StatusInternalServerError {
			return "INTERNAL_ERROR"
		}
		return "ERROR"
	}
}
