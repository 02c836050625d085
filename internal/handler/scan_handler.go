package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"medvault/internal/service"
	"medvault/internal/sse"

	"github.com/labstack/echo/v4"
)

type ScanHandler struct {
	scanService service.ScanService
	authHandler *AuthHandler
	sseManager  *sse.SSEManager
	logger      echo.Logger
}

func NewScanHandler(scanService service.ScanService, authHandler *AuthHandler, sseManager *sse.SSEManager, logger echo.Logger) *ScanHandler {
	return &ScanHandler{
		scanService: scanService,
		authHandler: authHandler,
		sseManager:  sseManager,
		logger:      logger,
	}
}

// StartScan creates a scan session and runs it in the background. Progress
// arrives over the session status endpoint or the SSE stream.
func (h *ScanHandler) StartScan(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	session, err := h.scanService.StartScan(c.Request().Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to start scan:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to start scan",
		})
	}

	// The scan outlives the request
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		if err := h.scanService.RunScan(ctx, user.ID, session.ID); err != nil {
			h.logger.Error("Scan run failed:", session.ID, err)
		}
	}()

	return c.JSON(http.StatusAccepted, session)
}

// GetScanStatus returns the current state of a scan session
func (h *ScanHandler) GetScanStatus(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	session, err := h.scanService.GetSession(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "Scan session not found",
		})
	}

	return c.JSON(http.StatusOK, session)
}

// ProcessScanPage advances a session by one mailbox page, for clients that
// drive the scan themselves instead of using the background run.
func (h *ScanHandler) ProcessScanPage(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := c.Bind(&req); err != nil || req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Session ID is required",
		})
	}

	session, err := h.scanService.ProcessNextPage(c.Request().Context(), user.ID, req.SessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "Scan session not found",
			})
		}
		h.logger.Error("Failed to process scan page:", err)
		// The session carries the error state for the client
		if session != nil {
			return c.JSON(http.StatusInternalServerError, session)
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to process scan page",
		})
	}

	return c.JSON(http.StatusOK, session)
}

// StreamScan provides Server-Sent Events for real-time scan updates
func (h *ScanHandler) StreamScan(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")

	clientChannel := h.sseManager.AddClient(user.ID)
	defer func() {
		h.sseManager.RemoveClient(user.ID, clientChannel)
	}()

	initEvent := map[string]interface{}{
		"type": "connection",
		"data": map[string]string{
			"message": "Connected to scan updates",
			"userId":  user.ID,
		},
		"time": time.Now().Unix(),
	}
	initJSON, _ := json.Marshal(initEvent)
	fmt.Fprintf(c.Response(), "data: %s\n\n", initJSON)
	c.Response().Flush()

	for {
		select {
		case eventData, ok := <-clientChannel:
			if !ok {
				return nil
			}
			fmt.Fprintf(c.Response(), "data: %s\n\n", eventData)
			c.Response().Flush()
		case <-c.Request().Context().Done():
			return nil
		}
	}
}
