package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/entityeditor/cmd/editor/container"
	"github.com/lyzr/entityeditor/cmd/editor/middleware"
	"github.com/lyzr/entityeditor/cmd/editor/service"
	"github.com/lyzr/entityeditor/common/bootstrap"
	"github.com/lyzr/entityeditor/common/session"
)

// UnifiedHandler handles the combined edition, works and series form
type UnifiedHandler struct {
	components *bootstrap.Components
	sessions   *service.SessionService
}

// NewUnifiedHandler creates a new unified form handler
func NewUnifiedHandler(c *container.Container) *UnifiedHandler {
	return &UnifiedHandler{
		components: c.Components,
		sessions:   c.SessionService,
	}
}

// CreateUnified starts a unified form around a new edition
// POST /api/v1/unified
func (h *UnifiedHandler) CreateUnified(c echo.Context) error {
	var opts session.Options
	if err := c.Bind(&opts); err != nil {
		return badRequest(c, "invalid request body")
	}

	u, err := h.sessions.CreateUnified(opts)
	if err != nil {
		return respondError(c, err, http.StatusBadRequest)
	}

	h.components.Logger.WithContext(c.Request().Context()).Info("unified form created",
		"session_id", u.ID(),
		"editor_id", middleware.GetEditorID(c))

	return c.JSON(http.StatusCreated, u.State())
}

// GetUnified returns every entity of the form
// GET /api/v1/unified/:id
func (h *UnifiedHandler) GetUnified(c echo.Context) error {
	u, err := h.sessions.GetUnified(c.Param("id"))
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"state":        u.State(),
		"submit_error": u.SubmitError(),
	})
}

// AddWork adds a work to the form
// POST /api/v1/unified/:id/works
func (h *UnifiedHandler) AddWork(c echo.Context) error {
	u, err := h.sessions.GetUnified(c.Param("id"))
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}

	var opts session.Options
	if err := c.Bind(&opts); err != nil {
		return badRequest(c, "invalid request body")
	}

	key, sess, err := u.AddWork(opts)
	if err != nil {
		return respondError(c, err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"key":   key,
		"state": sess.State(),
	})
}

type includeRequest struct {
	Include bool `json:"include"`
}

// SetWorkIncluded toggles whether a work is created with the edition
// PUT /api/v1/unified/:id/works/:key/include
func (h *UnifiedHandler) SetWorkIncluded(c echo.Context) error {
	u, err := h.sessions.GetUnified(c.Param("id"))
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}

	var req includeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if err := u.SetWorkIncluded(c.Param("key"), req.Include); err != nil {
		return respondError(c, err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusOK, u.State())
}

// RemoveWork drops a work from the form
// DELETE /api/v1/unified/:id/works/:key
func (h *UnifiedHandler) RemoveWork(c echo.Context) error {
	u, err := h.sessions.GetUnified(c.Param("id"))
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}
	u.RemoveWork(c.Param("key"))
	return c.NoContent(http.StatusNoContent)
}

// AddSeries adds a series to the form
// POST /api/v1/unified/:id/series
func (h *UnifiedHandler) AddSeries(c echo.Context) error {
	u, err := h.sessions.GetUnified(c.Param("id"))
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}

	var opts session.Options
	if err := c.Bind(&opts); err != nil {
		return badRequest(c, "invalid request body")
	}

	key, sess, err := u.AddSeries(opts)
	if err != nil {
		return respondError(c, err, http.StatusBadRequest)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"key":   key,
		"state": sess.State(),
	})
}

// RemoveSeries drops a series from the form
// DELETE /api/v1/unified/:id/series/:key
func (h *UnifiedHandler) RemoveSeries(c echo.Context) error {
	u, err := h.sessions.GetUnified(c.Param("id"))
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}
	u.RemoveSeries(c.Param("key"))
	return c.NoContent(http.StatusNoContent)
}

type isbnRequest struct {
	Value string `json:"value"`
}

// SetISBN sets the edition's ISBN shortcut field
// PUT /api/v1/unified/:id/isbn
func (h *UnifiedHandler) SetISBN(c echo.Context) error {
	u, err := h.sessions.GetUnified(c.Param("id"))
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}

	var req isbnRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	return c.JSON(http.StatusOK, u.SetISBN(req.Value))
}

// DispatchCommand applies a command to one entity of the form
// POST /api/v1/unified/:id/entities/:key/commands
func (h *UnifiedHandler) DispatchCommand(c echo.Context) error {
	var cmd session.Command
	if err := c.Bind(&cmd); err != nil {
		return badRequest(c, "invalid command")
	}
	if cmd.Op == "" {
		return badRequest(c, "op is required")
	}

	id, key := c.Param("id"), c.Param("key")
	res, err := h.sessions.DispatchUnified(id, key, cmd)
	if err != nil {
		return respondError(c, err, http.StatusBadRequest)
	}

	u, err := h.sessions.GetUnified(id)
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}
	sess, ok := u.Entity(key)
	if !ok {
		return respondError(c, service.ErrSessionNotFound, http.StatusNotFound)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"result": res,
		"state":  sess.State(),
	})
}

// GetValidation returns validation reports keyed by entity
// GET /api/v1/unified/:id/validation
func (h *UnifiedHandler) GetValidation(c echo.Context) error {
	u, err := h.sessions.GetUnified(c.Param("id"))
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}

	reports := u.Validate()
	blocking := false
	for _, report := range reports {
		if report.Blocking() {
			blocking = true
			break
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"entities": reports,
		"blocking": blocking,
	})
}

// GetPayload previews the batch payload
// GET /api/v1/unified/:id/payload
func (h *UnifiedHandler) GetPayload(c echo.Context) error {
	u, err := h.sessions.GetUnified(c.Param("id"))
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}
	payloads, err := u.Assemble()
	if err != nil {
		return respondError(c, err, http.StatusUnprocessableEntity)
	}
	return c.JSON(http.StatusOK, payloads)
}

// Submit posts the whole batch
// POST /api/v1/unified/:id/submit
func (h *UnifiedHandler) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	result, err := h.sessions.SubmitUnified(ctx, id)
	if err != nil {
		h.components.Logger.WithContext(ctx).Warn("unified submission failed", "session_id", id, "error", err)
		return respondError(c, err, http.StatusBadGateway)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"bbid":  result.BBID,
		"raw":   result.Raw,
		"alert": result.Alert,
	})
}

// DeleteUnified closes the form and every session in it
// DELETE /api/v1/unified/:id
func (h *UnifiedHandler) DeleteUnified(c echo.Context) error {
	if err := h.sessions.CloseUnified(c.Param("id")); err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}
