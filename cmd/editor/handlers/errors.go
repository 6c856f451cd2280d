package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/entityeditor/cmd/editor/service"
	"github.com/lyzr/entityeditor/common/clients"
	"github.com/lyzr/entityeditor/common/models"
	"github.com/lyzr/entityeditor/common/session"
	"github.com/lyzr/entityeditor/common/submission"
)

// errorStatus maps engine errors to HTTP codes; anything unrecognised gets
// fallback
func errorStatus(err error, fallback int) int {
	var serverErr *clients.ServerError
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, session.ErrNoSuchRow):
		return http.StatusNotFound
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, session.ErrBlocked):
		return http.StatusUnprocessableEntity
	case errors.Is(err, submission.ErrAlreadySubmitted):
		return http.StatusConflict
	case errors.As(err, &serverErr):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrUnknownCommand),
		errors.Is(err, session.ErrNotSeries),
		errors.Is(err, models.ErrUnknownField),
		errors.Is(err, models.ErrFieldType):
		return http.StatusBadRequest
	default:
		return fallback
	}
}

// respondError writes err as {"error": ...}
func respondError(c echo.Context, err error, fallback int) error {
	message := err.Error()
	var serverErr *clients.ServerError
	if errors.As(err, &serverErr) {
		message = submission.ErrorMessage(err)
	}
	return c.JSON(errorStatus(err, fallback), map[string]interface{}{
		"error": message,
	})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"error": message,
	})
}
