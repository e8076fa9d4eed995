package middleware

// identity.go defines helpers shared between the gate and the handlers. The
// gate stores the authenticated profile and its id in the Echo context; the
// helpers below read them back. When no user is attached, userID returns
// "guest" so request logs always carry a value.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/account-service/internal/model"
)

const (
    userKey   = "user"
    userIDKey = "user_id"
)

// CurrentUser returns the profile attached by JWTAuth.
func CurrentUser(c echo.Context) (model.Profile, bool) {
    p, ok := c.Get(userKey).(model.Profile)
    return p, ok
}

// userID returns the authenticated user id, or "guest".
func userID(c echo.Context) string {
    if v, ok := c.Get(userIDKey).(string); ok && v != "" {
        return v
    }
    return "guest"
}
