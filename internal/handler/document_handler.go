package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"medvault/internal/model"
	"medvault/internal/service"

	"github.com/labstack/echo/v4"
)

type DocumentHandler struct {
	documentService service.DocumentService
	prefsService    service.PreferencesService
	authHandler     *AuthHandler
	logger          echo.Logger
}

func NewDocumentHandler(documentService service.DocumentService, prefsService service.PreferencesService, authHandler *AuthHandler, logger echo.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		prefsService:    prefsService,
		authHandler:     authHandler,
		logger:          logger,
	}
}

// AnalyzeDocument accepts one uploaded PDF, runs extraction, and stores the
// resulting health record. Rejected documents return 422 with the reason.
func (h *DocumentHandler) AnalyzeDocument(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "File is required",
		})
	}

	if !isPDFUpload(fileHeader.Filename, fileHeader.Header.Get("Content-Type")) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Only PDF files are supported",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Failed to read uploaded file",
		})
	}
	defer file.Close()

	pdf, err := io.ReadAll(file)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Failed to read uploaded file",
		})
	}

	language := c.FormValue("language")
	if language == "" {
		if prefs, err := h.prefsService.GetPreferences(c.Request().Context(), user.ID); err == nil {
			language = prefs.Language
		}
	}

	record, analysis, err := h.documentService.AnalyzeAndStore(c.Request().Context(), user.ID, fileHeader.Filename, pdf, language)
	if err != nil {
		h.logger.Error("Failed to analyze document:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to analyze document",
		})
	}

	if record == nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"success":   false,
			"error":     analysis.ErrorMessage,
			"errorType": analysis.ErrorType,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":  true,
		"analysis": analysis,
		"document": record,
	})
}

// GetRecords lists the user's health records, newest first
func (h *DocumentHandler) GetRecords(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	records, err := h.documentService.GetRecords(c.Request().Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to get records:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to get records",
		})
	}

	return c.JSON(http.StatusOK, records)
}

// UpdateRecord edits a record's display fields
func (h *DocumentHandler) UpdateRecord(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	var update model.HealthRecordUpdate
	if err := c.Bind(&update); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	record, err := h.documentService.UpdateRecord(c.Request().Context(), user.ID, c.Param("id"), &update)
	if err != nil {
		if errors.Is(err, service.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "Record not found",
			})
		}
		h.logger.Error("Failed to update record:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to update record",
		})
	}

	return c.JSON(http.StatusOK, record)
}

// DeleteRecords handles bulk deletion of health records
func (h *DocumentHandler) DeleteRecords(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	// Both key spellings are accepted from clients
	var req struct {
		RecordIDs      []string `json:"recordIds"`
		RecordIDsSnake []string `json:"record_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}
	ids := req.RecordIDs
	if len(ids) == 0 {
		ids = req.RecordIDsSnake
	}
	if len(ids) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Record IDs are required",
		})
	}

	if err := h.documentService.DeleteRecords(c.Request().Context(), user.ID, ids); err != nil {
		h.logger.Error("Failed to delete records:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to delete records",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "Records deleted successfully",
	})
}

// ViewRecord returns a time-limited inline URL for a record's file
func (h *DocumentHandler) ViewRecord(c echo.Context) error {
	return h.recordURL(c, true)
}

// DownloadRecord returns a time-limited attachment URL for a record's file
func (h *DocumentHandler) DownloadRecord(c echo.Context) error {
	return h.recordURL(c, false)
}

func (h *DocumentHandler) recordURL(c echo.Context, inline bool) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	url, err := h.documentService.RecordURL(c.Request().Context(), user.ID, c.Param("id"), inline)
	if err != nil {
		if errors.Is(err, service.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "Record not found",
			})
		}
		h.logger.Error("Failed to presign record URL:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to generate link",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"url": url,
	})
}

func isPDFUpload(filename, contentType string) bool {
	if contentType == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}
