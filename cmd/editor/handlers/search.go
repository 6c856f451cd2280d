package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/entityeditor/cmd/editor/container"
	"github.com/lyzr/entityeditor/common/bootstrap"
	"github.com/lyzr/entityeditor/common/clients"
	"github.com/lyzr/entityeditor/common/models"
)

// SearchHandler proxies entity search for relationship and series pickers
type SearchHandler struct {
	components *bootstrap.Components
	search     *clients.SearchClient
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(c *container.Container) *SearchHandler {
	return &SearchHandler{
		components: c.Components,
		search:     c.Search,
	}
}

// searchParams reads q and type; a non-empty problem is a 400 message
func searchParams(c echo.Context) (q string, entityType models.EntityType, problem string) {
	q = c.QueryParam("q")
	if q == "" {
		return "", "", "q is required"
	}
	entityType = models.EntityType(c.QueryParam("type"))
	if entityType != "" && !entityType.Valid() {
		return "", "", "invalid entity type"
	}
	return q, entityType, ""
}

// Autocomplete searches entities by name prefix
// GET /api/v1/search/autocomplete?q=...&type=Work
func (h *SearchHandler) Autocomplete(c echo.Context) error {
	q, entityType, problem := searchParams(c)
	if problem != "" {
		return badRequest(c, problem)
	}

	ctx := c.Request().Context()
	results, err := h.search.Autocomplete(ctx, q, entityType)
	if err != nil {
		h.components.Logger.WithContext(ctx).Warn("autocomplete failed", "q", q, "error", err)
		return respondError(c, err, http.StatusBadGateway)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

// Exists lists entities already named q, for duplicate warnings
// GET /api/v1/search/exists?q=...&type=Work
func (h *SearchHandler) Exists(c echo.Context) error {
	q, entityType, problem := searchParams(c)
	if problem != "" {
		return badRequest(c, problem)
	}

	ctx := c.Request().Context()
	results, err := h.search.Exists(ctx, q, entityType)
	if err != nil {
		h.components.Logger.WithContext(ctx).Warn("exists check failed", "q", q, "error", err)
		return respondError(c, err, http.StatusBadGateway)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"results": results,
		"exists":  len(results) > 0,
	})
}
