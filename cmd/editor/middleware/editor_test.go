package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/lyzr/entityeditor/common/clients"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEditorID(t *testing.T) {
	e := echo.New()
	e.Use(echomw.RequestID())
	e.Use(ExtractEditorID())

	var (
		editorID  string
		fromCtx   string
		requestID string
	)
	e.GET("/", func(c echo.Context) error {
		editorID = GetEditorID(c)
		fromCtx, _ = clients.GetEditorID(c.Request().Context())
		requestID, _ = clients.GetRequestID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Editor-ID", "editor-7")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "editor-7", editorID)
	assert.Equal(t, "editor-7", fromCtx)
	assert.NotEmpty(t, requestID)
	assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), requestID)
}

func TestExtractEditorID_Anonymous(t *testing.T) {
	e := echo.New()
	e.Use(ExtractEditorID())

	var editorID string
	var found bool
	e.GET("/", func(c echo.Context) error {
		editorID = GetEditorID(c)
		_, found = clients.GetEditorID(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, editorID)
	assert.False(t, found)
}
