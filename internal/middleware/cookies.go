package middleware

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

const (
    AccessCookie  = "token"
    RefreshCookie = "refresh_token"
)

// CookieWriter sets and clears the session cookies.  All cookies are
// httpOnly, SameSite=Strict and scoped to "/"; Secure follows the
// deployment environment.
type CookieWriter struct {
    Secure     bool
    AccessTTL  time.Duration
    RefreshTTL time.Duration
}

// Set writes both cookies.
func (w CookieWriter) Set(c echo.Context, access, refresh string) {
    c.SetCookie(w.cookie(AccessCookie, access, int(w.AccessTTL/time.Second)))
    c.SetCookie(w.cookie(RefreshCookie, refresh, int(w.RefreshTTL/time.Second)))
}

// Clear expires both cookies.
func (w CookieWriter) Clear(c echo.Context) {
    c.SetCookie(w.cookie(AccessCookie, "", -1))
    c.SetCookie(w.cookie(RefreshCookie, "", -1))
}

func (w CookieWriter) cookie(name, value string, maxAge int) *http.Cookie {
    return &http.Cookie{
        Name:     name,
        Value:    value,
        Path:     "/",
        MaxAge:   maxAge,
        HttpOnly: true,
        Secure:   w.Secure,
        SameSite: http.SameSiteStrictMode,
    }
}

// cookieValue returns the named cookie's value or "".
func cookieValue(c echo.Context, name string) string {
    ck, err := c.Cookie(name)
    if err != nil {
        return ""
    }
    return ck.Value
}

// SessionCookies returns the access and refresh cookie values.
func SessionCookies(c echo.Context) (access, refresh string) {
    return cookieValue(c, AccessCookie), cookieValue(c, RefreshCookie)
}
