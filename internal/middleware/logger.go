package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request with method, path, status,
// latency, remote ip and user id.  Errors are passed to c.Error first so
// the logged status is the one the client actually received.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }

            entry := log.WithFields(logrus.Fields{
                "method":     c.Request().Method,
                "path":       c.Path(),
                "status":     c.Response().Status,
                "latency_ms": time.Since(start).Milliseconds(),
                "remote_ip":  c.RealIP(),
                "user_id":    userID(c),
            })
            switch status := c.Response().Status; {
            case status >= 500:
                entry.Error("request")
            case status >= 400:
                entry.Warn("request")
            default:
                entry.Info("request")
            }
            return nil
        }
    }
}
