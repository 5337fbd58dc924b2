package auth

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	apperrors "weatherlog/internal/errors"
)

const (
	claimsContextKey   = "auth.claims"
	identityContextKey = "auth.identity"
)

// ErrTokenRevoked is returned for tokens that were logged out before expiry.
var ErrTokenRevoked = errors.New("token has been revoked")

// Identity is the authenticated caller attached to each protected request.
type Identity struct {
	UserID   uuid.UUID
	Username string
}

// Middleware returns the bearer-token middleware for protected routes.
// A missing or malformed Authorization header yields 401; a token that is
// present but invalid, expired or revoked yields 403.
func Middleware(jwtService *JWTService, tokenStore TokenStoreInterface) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  claimsContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			claims, err := jwtService.ValidateToken(token)
			if err != nil {
				return nil, err
			}
			revoked, err := tokenStore.IsRevoked(c.Request().Context(), claims.ID)
			if err != nil {
				return nil, err
			}
			if revoked {
				return nil, ErrTokenRevoked
			}
			return claims, nil
		},
		SuccessHandler: func(c echo.Context) {
			if claims, ok := c.Get(claimsContextKey).(*Claims); ok {
				c.Set(identityContextKey, Identity{UserID: claims.UserID, Username: claims.Username})
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var extractionErr *echojwt.TokenExtractionError
			if errors.As(err, &extractionErr) {
				return echo.NewHTTPError(http.StatusUnauthorized, apperrors.ErrorResponse{
					Error: "access token required",
					Code:  "UNAUTHORIZED",
				}).SetInternal(err)
			}
			return echo.NewHTTPError(http.StatusForbidden, apperrors.ErrorResponse{
				Error: "invalid or expired token",
				Code:  "INVALID_TOKEN",
			}).SetInternal(err)
		},
	})
}

// IdentityFrom returns the identity attached by Middleware.
func IdentityFrom(c echo.Context) (Identity, bool) {
	identity, ok := c.Get(identityContextKey).(Identity)
	return identity, ok
}

// ClaimsFrom returns the verified token claims attached by Middleware.
func ClaimsFrom(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(*Claims)
	return claims, ok
}
