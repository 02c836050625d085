package router

import (
	"net/http"

	"medvault/internal/handler"
	"medvault/internal/middleware"

	"github.com/labstack/echo/v4"
)

func SetupRoutes(
	e *echo.Echo,
	authHandler *handler.AuthHandler,
	documentHandler *handler.DocumentHandler,
	scanHandler *handler.ScanHandler,
	shareHandler *handler.ShareHandler,
	preferencesHandler *handler.PreferencesHandler,
) {
	// Public routes
	e.GET("/auth/:provider", authHandler.BeginAuthHandler)
	e.GET("/auth/:provider/callback", authHandler.CallbackHandler)
	e.GET("/auth/logout", authHandler.LogoutHandler)

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	// Protected API routes
	protected := e.Group("/api")
	protected.Use(middleware.AuthMiddleware(authHandler))

	protected.GET("/me", authHandler.Me)

	// Document API routes
	protected.POST("/documents/analyze", documentHandler.AnalyzeDocument)
	protected.GET("/documents", documentHandler.GetRecords)
	protected.PATCH("/documents/:id", documentHandler.UpdateRecord)
	protected.DELETE("/documents", documentHandler.DeleteRecords)
	protected.GET("/documents/:id/view", documentHandler.ViewRecord)
	protected.GET("/documents/:id/download", documentHandler.DownloadRecord)
	protected.POST("/documents/share", shareHandler.CreateShare)

	// Mailbox scan routes
	protected.POST("/gmail/scan", scanHandler.StartScan)
	protected.GET("/gmail/scan/:id/status", scanHandler.GetScanStatus)
	protected.POST("/gmail/scan/process", scanHandler.ProcessScanPage)
	protected.GET("/gmail/scan/:id/stream", scanHandler.StreamScan)

	// Preferences
	protected.GET("/preferences", preferencesHandler.GetPreferences)
	protected.PUT("/preferences", preferencesHandler.UpdatePreferences)

	// Share consumption requires login but not ownership
	shared := e.Group("/shared")
	shared.Use(middleware.AuthMiddleware(authHandler))
	shared.GET("/:id", shareHandler.OpenShare)
}
