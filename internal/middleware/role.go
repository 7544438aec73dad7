package middleware // middleware provides shared request processing for handlers

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/pathlab-auth/internal/apperror"
    "github.com/iliyamo/pathlab-auth/internal/model"
)

// RequireRole returns a middleware that admits only session users whose
// role ranks at least min in the hierarchy KEY_ADMIN > ADMIN > DOCTOR >
// PATIENT > USER.  It relies on the gate having stored the user in the
// context; anonymous requests get 401, insufficient roles 403.
func RequireRole(min model.Role) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            u := CurrentUser(c)
            if u == nil {
                return apperror.NewUnauthorized(apperror.MsgUnauthorized)
            }
            if !u.Role.AtLeast(min) {
                return apperror.NewForbidden("Insufficient permissions")
            }
            return next(c)
        }
    }
}
