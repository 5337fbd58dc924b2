package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"weatherlog/internal/auth"
	"weatherlog/internal/errors"
)

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		}).SetInternal(err)
	}
	return c.Validate(req)
}

var errUnauthenticated = echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
	Error: "access token required",
	Code:  "UNAUTHORIZED",
})

// identity returns the authenticated caller. Routes using it sit behind auth.Middleware.
func identity(c echo.Context) (auth.Identity, error) {
	id, ok := auth.IdentityFrom(c)
	if !ok {
		return auth.Identity{}, errUnauthenticated
	}
	return id, nil
}

// recordID parses the :id path parameter. Malformed ids are reported like unknown ones.
func recordID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, errors.ErrRecordNotFound
	}
	return id, nil
}
