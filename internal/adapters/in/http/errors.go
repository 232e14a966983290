package http

import (
	"errors"
	"net/http"

	"dispatch/internal/core/application/session"
	"dispatch/internal/core/application/tracking"
	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/pkg/errs"

	"github.com/labstack/echo/v4"
)

// Error is the body of every non-2xx response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// statusFor maps a use case error to a response status. fallback is used for
// anything unrecognised, which after validation usually means the dispatch
// server call failed.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, commands.ErrClaimInFlight):
		return http.StatusTooManyRequests
	case errors.Is(err, commands.ErrOffline),
		errors.Is(err, commands.ErrNoPosition),
		errors.Is(err, tracking.ErrWatchActive):
		return http.StatusConflict
	case errors.Is(err, session.ErrSessionClosed):
		return http.StatusServiceUnavailable
	}
	return fallback
}

func writeError(c echo.Context, err error, fallback int) error {
	code := statusFor(err, fallback)
	return c.JSON(code, Error{Code: code, Message: err.Error()})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, Error{Code: http.StatusBadRequest, Message: message})
}
