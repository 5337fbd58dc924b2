package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"weatherlog/internal/errors"
	"weatherlog/internal/service"
)

// WeatherHandler serves ad-hoc weather lookups.
type WeatherHandler struct {
	weather service.WeatherService
}

// NewWeatherHandler creates a new weather handler.
func NewWeatherHandler(weather service.WeatherService) *WeatherHandler {
	return &WeatherHandler{weather: weather}
}

// Current godoc
// @Summary Current weather
// @Description Nearest forecast sample for a place, with its resolved location.
// @Tags weather
// @Produce json
// @Security BearerAuth
// @Param location path string true "Place name"
// @Success 200 {object} service.CurrentWeather
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /weather/current/{location} [get]
func (h *WeatherHandler) Current(c echo.Context) error {
	current, err := h.weather.Current(c.Request().Context(), c.Param("location"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, current)
}

// Forecast godoc
// @Summary Forecast
// @Tags weather
// @Produce json
// @Security BearerAuth
// @Param location path string true "Place name"
// @Param days query int false "Days of forecast (1-14)" default(5)
// @Success 200 {object} model.Forecast
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /weather/forecast/{location} [get]
func (h *WeatherHandler) Forecast(c echo.Context) error {
	var days int
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return errors.NewValidationError("days", "days must be between 1 and 14")
		}
		days = n
	}

	forecast, err := h.weather.Forecast(c.Request().Context(), c.Param("location"), days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, forecast)
}
