package middleware

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/entityeditor/common/clients"
	"github.com/lyzr/entityeditor/common/logger"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// EditorIDKey is the context key for storing the editor's user id
	EditorIDKey ContextKey = "editor_id"
)

// ExtractEditorID is a middleware that extracts the X-Editor-ID header and
// the request id set by echo's RequestID middleware, and stores both in
// the request context so outgoing client calls forward them.
//
// Usage:
//
//	e := echo.New()
//	e.Use(middleware.RequestID())
//	e.Use(editormw.ExtractEditorID())
func ExtractEditorID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := req.Context()

			if editorID := req.Header.Get("X-Editor-ID"); editorID != "" {
				c.Set(string(EditorIDKey), editorID)
				ctx = clients.WithEditorID(ctx, editorID)
			}

			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = req.Header.Get(echo.HeaderXRequestID)
			}
			if requestID != "" {
				ctx = clients.WithRequestID(ctx, requestID)
				ctx = context.WithValue(ctx, logger.RequestIDKey, requestID)
			}

			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	}
}

// GetEditorID retrieves the editor id from the request context
// Returns empty string if not set
func GetEditorID(c echo.Context) string {
	editorID, _ := c.Get(string(EditorIDKey)).(string)
	return editorID
}
