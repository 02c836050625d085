package handler

import (
	"errors"
	"net/http"

	"medvault/internal/service"

	"github.com/labstack/echo/v4"
)

type ShareHandler struct {
	shareService service.ShareService
	authHandler  *AuthHandler
	logger       echo.Logger
}

func NewShareHandler(shareService service.ShareService, authHandler *AuthHandler, logger echo.Logger) *ShareHandler {
	return &ShareHandler{
		shareService: shareService,
		authHandler:  authHandler,
		logger:       logger,
	}
}

// CreateShare builds a single-use share link over the user's own records
func (h *ShareHandler) CreateShare(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	// Both key spellings are accepted from clients
	var req struct {
		DocumentIDs      []string `json:"documentIds"`
		DocumentIDsSnake []string `json:"document_ids"`
		RecordIDs        []string `json:"recordIds"`
		RecordIDsSnake   []string `json:"record_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}
	ids := req.DocumentIDs
	for _, alt := range [][]string{req.DocumentIDsSnake, req.RecordIDs, req.RecordIDsSnake} {
		if len(ids) == 0 {
			ids = alt
		}
	}
	if len(ids) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Record IDs are required",
		})
	}

	share, err := h.shareService.CreateShare(c.Request().Context(), user.ID, ids)
	if err != nil {
		if errors.Is(err, service.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "One or more records not found",
			})
		}
		h.logger.Error("Failed to create share:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to create share",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"share": share,
		"url":   "/shared/" + share.ID,
	})
}

// OpenShare resolves a share for the viewer, consuming it on first access
func (h *ShareHandler) OpenShare(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	records, err := h.shareService.OpenShare(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrShareNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "Shared collection not found",
			})
		case errors.Is(err, service.ErrShareOwnView):
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "Owners cannot open their own share link",
			})
		case errors.Is(err, service.ErrShareConsumed):
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "This share link has already been used",
			})
		}
		h.logger.Error("Failed to open share:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to open share",
		})
	}

	return c.JSON(http.StatusOK, records)
}
