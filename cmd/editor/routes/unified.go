package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/entityeditor/cmd/editor/container"
	"github.com/lyzr/entityeditor/cmd/editor/handlers"
	"github.com/lyzr/entityeditor/cmd/editor/middleware"
)

// RegisterUnifiedRoutes registers the edition + works + series form routes
func RegisterUnifiedRoutes(e *echo.Echo, c *container.Container) {
	submitLimit := middleware.SubmitRateLimit(c.RateLimiter, c.Components.Config.Editor.SubmitRateLimit, c.Components.Config.Editor.SubmitRateWindow)
	h := handlers.NewUnifiedHandler(c)

	unified := e.Group("/api/v1/unified")
	unified.Use(middleware.ExtractEditorID())
	{
		unified.POST("", h.CreateUnified)                              // POST /api/v1/unified
		unified.GET("/:id", h.GetUnified)                              // GET /api/v1/unified/{id}
		unified.POST("/:id/works", h.AddWork)                          // POST /api/v1/unified/{id}/works
		unified.PUT("/:id/works/:key/include", h.SetWorkIncluded)      // PUT /api/v1/unified/{id}/works/{key}/include
		unified.DELETE("/:id/works/:key", h.RemoveWork)                // DELETE /api/v1/unified/{id}/works/{key}
		unified.POST("/:id/series", h.AddSeries)                       // POST /api/v1/unified/{id}/series
		unified.DELETE("/:id/series/:key", h.RemoveSeries)             // DELETE /api/v1/unified/{id}/series/{key}
		unified.PUT("/:id/isbn", h.SetISBN)                            // PUT /api/v1/unified/{id}/isbn
		unified.POST("/:id/entities/:key/commands", h.DispatchCommand) // POST /api/v1/unified/{id}/entities/{key}/commands
		unified.GET("/:id/validation", h.GetValidation)                // GET /api/v1/unified/{id}/validation
		unified.GET("/:id/payload", h.GetPayload)                      // GET /api/v1/unified/{id}/payload
		unified.POST("/:id/submit", h.Submit, submitLimit)             // POST /api/v1/unified/{id}/submit
		unified.DELETE("/:id", h.DeleteUnified)                        // DELETE /api/v1/unified/{id}
	}
}
