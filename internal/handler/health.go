package handler // declare the package name; contains HTTP handlers

import (
    "context"  // bounds each dependency check
    "net/http" // net/http provides status codes and response helpers
    "time"     // check timeout

    "github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Check pings one dependency.
type Check func(ctx context.Context) error

// Health returns a health‑check endpoint used by load balancers and
// monitoring systems.  Each named check runs with a short timeout; the
// response is 200 when all pass and 503 otherwise, with the per-check
// result in data.
func Health(checks map[string]Check) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()

        status := http.StatusOK
        results := make(map[string]string, len(checks))
        for name, check := range checks {
            if err := check(ctx); err != nil {
                results[name] = err.Error()
                status = http.StatusServiceUnavailable
                continue
            }
            results[name] = "ok"
        }
        msg := "ok"
        if status != http.StatusOK {
            msg = "degraded"
        }
        return respond(c, status, results, msg)
    }
}
