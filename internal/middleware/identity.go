package middleware

// identity.go holds the helpers shared by the gate, RequireRole and the
// handlers: where the session user lives in the echo context and how the
// client IP is derived.

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/pathlab-auth/internal/model"
)

const userContextKey = "session_user"

// SetUser stores the resolved session user in the context.
func SetUser(c echo.Context, u *model.LoggedInUser) { c.Set(userContextKey, u) }

// CurrentUser returns the session user resolved by the gate, or nil for
// anonymous requests.
func CurrentUser(c echo.Context) *model.LoggedInUser {
    u, _ := c.Get(userContextKey).(*model.LoggedInUser)
    return u
}

// ClientIP checks the forwarding headers in order x-forwarded-for (first
// hop), x-real-ip, x-client-ip, cf-connecting-ip and falls back to
// "unknown".
func ClientIP(r *http.Request) string {
    if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
        if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
            return first
        }
    }
    for _, h := range []string{"X-Real-IP", "X-Client-IP", "CF-Connecting-IP"} {
        if v := strings.TrimSpace(r.Header.Get(h)); v != "" {
            return v
        }
    }
    return "unknown"
}
