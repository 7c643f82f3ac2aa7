package apierr

import (
	"errors"
	"net/http"

	"github.com/flashtalk/flashtalk/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HTTPErrorHandler maps errors to the {type, title, detail} body. Typed
// failures pass through with their own status; anything unclassified is
// logged with full context and surfaced as a generic internal error.
func HTTPErrorHandler(logger *logging.Service) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *Error
		if errors.As(err, &apiErr) {
			writeError(c, apiErr)
			return
		}

		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			detail := ""
			if msg, ok := httpErr.Message.(string); ok {
				detail = msg
			}
			writeError(c, &Error{
				Type:   typeForStatus(httpErr.Code),
				Title:  http.StatusText(httpErr.Code),
				Detail: detail,
				Status: httpErr.Code,
			})
			return
		}

		logger.Error("unhandled error",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err))
		writeError(c, Internal())
	}
}

func writeError(c echo.Context, apiErr *Error) {
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(apiErr.Status)
		return
	}
	_ = c.JSON(apiErr.Status, apiErr)
}

func typeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return TypeAuth
	case http.StatusBadRequest:
		return TypeValidation
	case http.StatusNotFound:
		return TypeNotFound
	case http.StatusConflict:
		return TypeConflict
	default:
		return TypeInternal
	}
}
