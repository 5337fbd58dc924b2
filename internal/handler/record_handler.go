package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"weatherlog/internal/model"
	"weatherlog/internal/service"
)

// RecordHandler serves the weather record endpoints.
type RecordHandler struct {
	pipeline service.RecordPipeline
	records  service.RecordService
}

// NewRecordHandler creates a new record handler.
func NewRecordHandler(pipeline service.RecordPipeline, records service.RecordService) *RecordHandler {
	return &RecordHandler{pipeline: pipeline, records: records}
}

// RecordRequest is the body of a create or update call. Dates are YYYY-MM-DD.
type RecordRequest struct {
	Location  string `json:"location" example:"Paris"`
	StartDate string `json:"startDate" example:"2026-10-18"`
	EndDate   string `json:"endDate" example:"2026-10-20"`
}

// RecordResponse wraps a single record.
type RecordResponse struct {
	Message string               `json:"message,omitempty"`
	Record  *model.WeatherRecord `json:"record"`
}

// Create godoc
// @Summary Create a weather record
// @Description Validates the input, fetches the forecast and location metadata, and stores both.
// @Tags weather-records
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RecordRequest true "Location and date range"
// @Success 201 {object} RecordResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /weather-records [post]
func (h *RecordHandler) Create(c echo.Context) error {
	return h.submit(c, service.ModeCreate, uuid.Nil, http.StatusCreated, "weather record created successfully")
}

// Update godoc
// @Summary Update a weather record
// @Description Re-fetches weather for the new location and dates and overwrites the record.
// @Tags weather-records
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Param request body RecordRequest true "Location and date range"
// @Success 200 {object} RecordResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /weather-records/{id} [put]
func (h *RecordHandler) Update(c echo.Context) error {
	// A malformed id is left to the pipeline, which checks the body first
	// and then reports the record as not found.
	id, _ := uuid.Parse(c.Param("id"))
	return h.submit(c, service.ModeUpdate, id, http.StatusOK, "weather record updated successfully")
}

func (h *RecordHandler) submit(c echo.Context, mode service.Mode, id uuid.UUID, status int, message string) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}

	var req RecordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.pipeline.Submit(c.Request().Context(), service.SubmitInput{
		UserID:     caller.UserID,
		Location:   req.Location,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Mode:       mode,
		ExistingID: id,
	})
	if err != nil {
		return err
	}

	return c.JSON(status, RecordResponse{Message: message, Record: result.Record})
}

// List godoc
// @Summary List weather records
// @Description Newest first. limit is clamped to 1..100.
// @Tags weather-records
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} service.RecordPage
// @Failure 401 {object} errors.ErrorResponse
// @Router /weather-records [get]
func (h *RecordHandler) List(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}

	// Unparseable values fall back to the defaults.
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	result, err := h.records.List(c.Request().Context(), caller.UserID, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Get godoc
// @Summary Get a weather record
// @Tags weather-records
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Success 200 {object} RecordResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /weather-records/{id} [get]
func (h *RecordHandler) Get(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	id, err := recordID(c)
	if err != nil {
		return err
	}

	record, err := h.records.Get(c.Request().Context(), caller.UserID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, RecordResponse{Record: record})
}

// Delete godoc
// @Summary Delete a weather record
// @Tags weather-records
// @Produce json
// @Security BearerAuth
// @Param id path string true "Record ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /weather-records/{id} [delete]
func (h *RecordHandler) Delete(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}
	id, err := recordID(c)
	if err != nil {
		return err
	}

	if err := h.records.Delete(c.Request().Context(), caller.UserID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "weather record deleted successfully"})
}
