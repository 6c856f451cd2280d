package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/entityeditor/cmd/editor/container"
	"github.com/lyzr/entityeditor/cmd/editor/handlers"
	"github.com/lyzr/entityeditor/cmd/editor/middleware"
)

// RegisterSessionRoutes registers single-entity editing routes
func RegisterSessionRoutes(e *echo.Echo, c *container.Container) {
	submitLimit := middleware.SubmitRateLimit(c.RateLimiter, c.Components.Config.Editor.SubmitRateLimit, c.Components.Config.Editor.SubmitRateWindow)
	h := handlers.NewSessionHandler(c)

	sessions := e.Group("/api/v1/sessions")
	sessions.Use(middleware.ExtractEditorID()) // Extract X-Editor-ID into context
	{
		sessions.POST("", h.CreateSession)                  // POST /api/v1/sessions
		sessions.GET("/:id", h.GetSession)                  // GET /api/v1/sessions/{id}
		sessions.POST("/:id/commands", h.DispatchCommand)   // POST /api/v1/sessions/{id}/commands
		sessions.GET("/:id/candidates", h.GetCandidates)    // GET /api/v1/sessions/{id}/candidates?type=Work&bbid=...
		sessions.GET("/:id/validation", h.GetValidation)    // GET /api/v1/sessions/{id}/validation
		sessions.GET("/:id/changes", h.GetChanges)          // GET /api/v1/sessions/{id}/changes
		sessions.GET("/:id/payload", h.GetPayload)          // GET /api/v1/sessions/{id}/payload
		sessions.POST("/:id/submit", h.Submit, submitLimit) // POST /api/v1/sessions/{id}/submit
		sessions.DELETE("/:id", h.DeleteSession)            // DELETE /api/v1/sessions/{id}
	}
}
