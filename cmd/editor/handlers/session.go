package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/entityeditor/cmd/editor/container"
	"github.com/lyzr/entityeditor/cmd/editor/middleware"
	"github.com/lyzr/entityeditor/cmd/editor/service"
	"github.com/lyzr/entityeditor/common/bootstrap"
	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/session"
)

// SessionHandler handles single-entity editing sessions
type SessionHandler struct {
	components *bootstrap.Components
	sessions   *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(c *container.Container) *SessionHandler {
	return &SessionHandler{
		components: c.Components,
		sessions:   c.SessionService,
	}
}

// sessionView is the response shape for a session
func sessionView(sess *session.Session) map[string]interface{} {
	return map[string]interface{}{
		"session_id":            sess.ID(),
		"state":                 sess.State(),
		"pending":               sess.Pending(),
		"unsaved":               sess.HasUnsavedChanges(),
		"submitted":             sess.Submitted(),
		"submit_error":          sess.SubmitError(),
		"can_undo_relationship": sess.CanUndoRelationship(),
	}
}

// CreateSession starts an editing session
// POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c echo.Context) error {
	var opts session.Options
	if err := c.Bind(&opts); err != nil {
		return badRequest(c, "invalid request body")
	}

	sess, err := h.sessions.Create(opts)
	if err != nil {
		return respondError(c, err, http.StatusBadRequest)
	}

	h.components.Logger.WithContext(c.Request().Context()).Info("session created",
		"session_id", sess.ID(),
		"entity_type", opts.EntityType,
		"editor_id", middleware.GetEditorID(c))

	return c.JSON(http.StatusCreated, sessionView(sess))
}

// GetSession returns the editing state of a session
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c echo.Context) error {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, sessionView(sess))
}

// DispatchCommand applies one command
// POST /api/v1/sessions/:id/commands
func (h *SessionHandler) DispatchCommand(c echo.Context) error {
	var cmd session.Command
	if err := c.Bind(&cmd); err != nil {
		return badRequest(c, "invalid command")
	}
	if cmd.Op == "" {
		return badRequest(c, "op is required")
	}

	id := c.Param("id")
	res, err := h.sessions.Dispatch(id, cmd)
	if err != nil {
		return respondError(c, err, http.StatusBadRequest)
	}

	sess, err := h.sessions.Get(id)
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"result": res,
		"state":  sess.State(),
	})
}

// GetCandidates lists the relationship types possible with another entity
// GET /api/v1/sessions/:id/candidates?bbid=...&type=Work&name=...
func (h *SessionHandler) GetCandidates(c echo.Context) error {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}

	otherTypes := h.components.Resolver.OtherEntityTypes(sess.EntityType())

	entityType := models.EntityType(c.QueryParam("type"))
	if entityType == "" {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"candidates":         []candidateView{},
			"other_entity_types": otherTypes,
		})
	}
	if !entityType.Valid() {
		return badRequest(c, "invalid entity type")
	}

	other := models.Entity{
		BBID:         c.QueryParam("bbid"),
		Type:         entityType,
		DefaultAlias: c.QueryParam("name"),
	}
	candidates := sess.Candidates(other)
	indentUnit := h.components.Config.Editor.IndentUnit

	views := make([]candidateView, len(candidates))
	for i, cand := range candidates {
		views[i] = candidateView{
			RelationshipTypeID: cand.Type.ID,
			Label:              cand.Type.Label,
			Phrase:             cand.Phrase(),
			Reversed:           cand.Reversed,
			Depth:              cand.Depth,
			Indent:             cand.Indent(indentUnit),
			Description:        cand.Type.Description,
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"candidates":         views,
		"other_entity_types": otherTypes,
	})
}

type candidateView struct {
	RelationshipTypeID int    `json:"relationship_type_id"`
	Label              string `json:"label"`
	Phrase             string `json:"phrase"`
	Reversed           bool   `json:"reversed"`
	Depth              int    `json:"depth"`
	Indent             int    `json:"indent"`
	Description        string `json:"description,omitempty"`
}

// GetValidation returns the per-field validation state
// GET /api/v1/sessions/:id/validation
func (h *SessionHandler) GetValidation(c echo.Context) error {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}
	report := sess.Validate()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"fields":   report.Fields,
		"blocking": report.Blocking(),
		"pending":  sess.Pending(),
	})
}

// GetChanges returns the merge patch from the loaded state
// GET /api/v1/sessions/:id/changes
func (h *SessionHandler) GetChanges(c echo.Context) error {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}
	patch, err := sess.Changes()
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}
	return c.JSONBlob(http.StatusOK, patch)
}

// GetPayload previews the submission payload
// GET /api/v1/sessions/:id/payload
func (h *SessionHandler) GetPayload(c echo.Context) error {
	sess, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, sess.Payload())
}

// Submit posts the session's payload
// POST /api/v1/sessions/:id/submit
func (h *SessionHandler) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	result, err := h.sessions.Submit(ctx, id)
	if err != nil {
		h.components.Logger.WithContext(ctx).Warn("submission failed", "session_id", id, "error", err)
		return respondError(c, err, http.StatusBadGateway)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"bbid":  result.BBID,
		"alert": result.Alert,
	})
}

// DeleteSession closes a session
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) DeleteSession(c echo.Context) error {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		return respondError(c, err, http.StatusInternalServerError)
	}
	return c.NoContent(http.StatusNoContent)
}
