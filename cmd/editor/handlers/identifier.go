package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/entityeditor/cmd/editor/container"
	"github.com/lyzr/entityeditor/cmd/editor/service"
	"github.com/lyzr/entityeditor/common/models"
)

// IdentifierHandler exposes identifier type lookup and ISBN helpers
type IdentifierHandler struct {
	identifiers *service.IdentifierService
}

// NewIdentifierHandler creates a new identifier handler
func NewIdentifierHandler(c *container.Container) *IdentifierHandler {
	return &IdentifierHandler{
		identifiers: c.IdentifierService,
	}
}

// ListTypes lists identifier types
// GET /api/v1/identifiers/types?entityType=Edition
func (h *IdentifierHandler) ListTypes(c echo.Context) error {
	types, err := h.identifiers.Types(models.EntityType(c.QueryParam("entityType")))
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"types": types,
	})
}

// Guess infers the identifier type of a typed value
// GET /api/v1/identifiers/guess?entityType=Edition&value=...
func (h *IdentifierHandler) Guess(c echo.Context) error {
	value := c.QueryParam("value")
	if value == "" {
		return badRequest(c, "value is required")
	}

	result, err := h.identifiers.Guess(models.EntityType(c.QueryParam("entityType")), value)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// ISBN checks an ISBN and converts it to the other length
// GET /api/v1/identifiers/isbn/:value
func (h *IdentifierHandler) ISBN(c echo.Context) error {
	return c.JSON(http.StatusOK, h.identifiers.ISBN(c.Param("value")))
}
