package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "errors"  // distinguishes a missing user from a store failure
    "strings" // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/account-service/internal/cache"
    "github.com/iliyamo/account-service/internal/repository"
    "github.com/iliyamo/account-service/internal/service"
    "github.com/iliyamo/account-service/internal/utils"
)

// AccessCookie is the cookie carrying the access token.
const AccessCookie = "accessToken"

// JWTAuth returns an Echo middleware that admits a request only when it
// carries a valid access token whose subject still exists.  The token is
// read from the accessToken cookie first and the Authorization header
// second.  On success the caller's model.Profile is stored under "user"
// and the id under "user_id"; handlers read them with CurrentUser.
//
// Failures are returned as *service.Error so the error handler renders
// them in the usual envelope: no token is a 400, a bad or expired token
// and an unknown subject are 401s.
func JWTAuth(codec *utils.TokenCodec, users repository.UserStore, profiles *cache.ProfileCache) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := accessToken(c)
            if raw == "" {
                return service.BadRequest("token is required")
            }

            claims, err := codec.VerifyAccess(raw)
            if err != nil {
                return &service.Error{Kind: service.KindUnauthorized, Message: "Invalid access token", Err: err}
            }

            ctx := c.Request().Context()
            id := claims.UserID()
            profile, ok := profiles.Get(ctx, id)
            if !ok {
                u, err := users.GetByID(ctx, id)
                if err != nil {
                    if errors.Is(err, repository.ErrNotFound) {
                        return service.Unauthorized("Invalid Access Token")
                    }
                    return service.Internal("Something went wrong while verifying the access token", err)
                }
                profile = u.Profile()
                profiles.Set(ctx, profile)
            }

            c.Set(userKey, profile)
            c.Set(userIDKey, profile.ID)
            return next(c)
        }
    }
}

// accessToken extracts the raw token from the cookie or the bearer header.
func accessToken(c echo.Context) string {
    if ck, err := c.Cookie(AccessCookie); err == nil && strings.TrimSpace(ck.Value) != "" {
        return strings.TrimSpace(ck.Value)
    }
    return BearerToken(c)
}

// BearerToken returns the token from "Authorization: Bearer <t>", or "".
func BearerToken(c echo.Context) string {
    auth := c.Request().Header.Get(echo.HeaderAuthorization)
    if !strings.HasPrefix(auth, "Bearer ") {
        return ""
    }
    return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}
