package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"casecraft_echo/internal/services"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// CustomErrorHandler renders every error as JSON. Service errors keep their
// kind and user-facing message; causes are only logged.
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := errorDetail{Kind: string(services.KindInternal), Message: services.ErrInternal.Message}

	var he *echo.HTTPError
	var se *services.Error
	switch {
	case errors.As(err, &se):
		code = se.Kind.HTTPStatus()
		detail = errorDetail{Kind: string(se.Kind), Message: se.Message}
	case errors.As(err, &he):
		code = he.Code
		detail.Kind = kindForStatus(code)
		if msg, ok := he.Message.(string); ok && msg != "" {
			detail.Message = msg
		} else {
			detail.Message = http.StatusText(code)
		}
	}

	event := log.Warn()
	if code >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).
		Int("status", code).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("request failed")

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, errorBody{Error: detail})
	}
	if writeErr != nil {
		log.Error().Err(writeErr).Msg("failed to write error response")
	}
}

func kindForStatus(code int) string {
	switch code {
	case http.StatusUnauthorized:
		return string(services.KindUnauthenticated)
	case http.StatusNotFound:
		return string(services.KindNotFound)
	case http.StatusBadRequest, http.StatusMethodNotAllowed, http.StatusUnsupportedMediaType:
		return string(services.KindInvalidInput)
	default:
		if code < http.StatusInternalServerError {
			return "http_error"
		}
		return string(services.KindInternal)
	}
}
