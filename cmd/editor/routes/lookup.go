package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/entityeditor/cmd/editor/container"
	"github.com/lyzr/entityeditor/cmd/editor/handlers"
)

// RegisterIdentifierRoutes registers session-free identifier lookups
func RegisterIdentifierRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewIdentifierHandler(c)

	identifiers := e.Group("/api/v1/identifiers")
	{
		identifiers.GET("/types", h.ListTypes)  // GET /api/v1/identifiers/types?entityType=Edition
		identifiers.GET("/guess", h.Guess)      // GET /api/v1/identifiers/guess?entityType=Edition&value=...
		identifiers.GET("/isbn/:value", h.ISBN) // GET /api/v1/identifiers/isbn/{value}
	}
}

// RegisterSearchRoutes registers the entity search proxy
func RegisterSearchRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewSearchHandler(c)

	search := e.Group("/api/v1/search")
	{
		search.GET("/autocomplete", h.Autocomplete) // GET /api/v1/search/autocomplete?q=...&type=Work
		search.GET("/exists", h.Exists)             // GET /api/v1/search/exists?q=...&type=Work
	}
}
