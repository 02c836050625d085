package handler

import (
	"net/http"

	"medvault/internal/model"
	"medvault/internal/service"

	"github.com/labstack/echo/v4"
)

type PreferencesHandler struct {
	prefsService service.PreferencesService
	authHandler  *AuthHandler
	logger       echo.Logger
}

func NewPreferencesHandler(prefsService service.PreferencesService, authHandler *AuthHandler, logger echo.Logger) *PreferencesHandler {
	return &PreferencesHandler{
		prefsService: prefsService,
		authHandler:  authHandler,
		logger:       logger,
	}
}

// GetPreferences returns the user's preferences, defaults included
func (h *PreferencesHandler) GetPreferences(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	prefs, err := h.prefsService.GetPreferences(c.Request().Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to get preferences:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to get preferences",
		})
	}

	return c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences upserts the user's preferences
func (h *PreferencesHandler) UpdatePreferences(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	var prefs model.UserPreferences
	if err := c.Bind(&prefs); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	updated, err := h.prefsService.UpdatePreferences(c.Request().Context(), user.ID, &prefs)
	if err != nil {
		h.logger.Error("Failed to update preferences:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to update preferences",
		})
	}

	return c.JSON(http.StatusOK, updated)
}
