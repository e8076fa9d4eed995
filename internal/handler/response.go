package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/account-service/internal/service"
)

// Response is the envelope of every JSON body this API writes.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respond(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// StatusFor maps a service error kind to an HTTP status.
func StatusFor(k service.Kind) int {
	switch k {
	case service.KindBadRequest:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders errors returned by handlers and middleware in the
// response envelope.  Internal causes are logged, never sent.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, message := http.StatusInternalServerError, "Internal Server Error"
		var (
			se *service.Error
			he *echo.HTTPError
		)
		switch {
		case errors.As(err, &se):
			status, message = StatusFor(se.Kind), se.Message
		case errors.As(err, &he):
			status, message = he.Code, fmt.Sprint(he.Message)
		}
		if status >= http.StatusInternalServerError {
			log.WithError(err).WithField("path", c.Path()).Error("request failed")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, Response{StatusCode: status, Data: nil, Message: message, Success: false})
		}
		if werr != nil {
			log.WithError(werr).Warn("write error response")
		}
	}
}
