package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"weatherlog/internal/service"
)

// ExportHandler serves record downloads.
type ExportHandler struct {
	records service.RecordService
}

// NewExportHandler creates a new export handler.
func NewExportHandler(records service.RecordService) *ExportHandler {
	return &ExportHandler{records: records}
}

// Export godoc
// @Summary Export weather records
// @Description Downloads every record of the caller, newest first.
// @Tags export
// @Produce json
// @Produce text/csv
// @Produce application/xml
// @Security BearerAuth
// @Param format path string true "json, csv or xml"
// @Success 200 {file} file
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /export/{format} [get]
func (h *ExportHandler) Export(c echo.Context) error {
	caller, err := identity(c)
	if err != nil {
		return err
	}

	doc, err := h.records.Export(c.Request().Context(), caller.UserID, c.Param("format"))
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename))
	return c.Blob(http.StatusOK, doc.ContentType, doc.Body)
}
