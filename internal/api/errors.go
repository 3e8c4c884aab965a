package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error bodies are echo's default {"message": ...}. The cause of a 500 is
// kept as the internal error for logging and never sent to the client.

func notFound() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusNotFound, "not found")
}

func badRequest(reason string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, reason)
}

func internalError(err error) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}
