package handler

import (
    "context"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/pathlab-auth/internal/apperror"
    "github.com/iliyamo/pathlab-auth/internal/middleware"
    "github.com/iliyamo/pathlab-auth/internal/service"
)

// AuthHandler bundles dependencies for the session endpoints.
type AuthHandler struct {
    Auth    *service.AuthService
    Cookies middleware.CookieWriter
}

func NewAuthHandler(a *service.AuthService, cookies middleware.CookieWriter) *AuthHandler {
    return &AuthHandler{Auth: a, Cookies: cookies}
}

// ----- DTOs -----

type loginReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refreshToken"`
}

func meta(c echo.Context) service.RequestMeta {
    return service.RequestMeta{IP: middleware.ClientIP(c.Request()), UserAgent: c.Request().UserAgent()}
}

// Login: verify credentials, set both cookies.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bind(c, &req); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    sess, err := h.Auth.Login(ctx, req.Email, req.Password, meta(c))
    if err != nil {
        return err
    }
    h.Cookies.Set(c, sess.AccessToken, sess.RefreshToken)
    return respond(c, http.StatusOK, "Login successful", echo.Map{"loggedInUser": sess.User})
}

// Refresh: rotate the refresh token from the body or the cookie.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if c.Request().ContentLength != 0 {
        if err := bind(c, &req); err != nil {
            return err
        }
    }
    token := strings.TrimSpace(req.RefreshToken)
    if token == "" {
        _, token = middleware.SessionCookies(c)
    }
    if token == "" {
        return apperror.NewUnauthorized("Refresh token missing")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    sess, err := h.Auth.Refresh(ctx, token, meta(c))
    if err != nil {
        return err
    }
    h.Cookies.Set(c, sess.AccessToken, sess.RefreshToken)
    return respond(c, http.StatusOK, "Token refreshed", echo.Map{"loggedInUser": sess.User})
}

// Logout: revoke the refresh record if present and clear both cookies.
func (h *AuthHandler) Logout(c echo.Context) error {
    access, refresh := middleware.SessionCookies(c)
    if access == "" && refresh == "" {
        return apperror.NewUnauthorized("No active session")
    }
    if refresh != "" {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
        defer cancel()
        h.Auth.Logout(ctx, refresh)
    }
    h.Cookies.Clear(c)
    return respond(c, http.StatusOK, "Logged out successfully", nil)
}

// Me: the session user resolved by the gate.
func (h *AuthHandler) Me(c echo.Context) error {
    u := middleware.CurrentUser(c)
    if u == nil {
        return apperror.NewUnauthorized(apperror.MsgUnauthorized)
    }
    return respond(c, http.StatusOK, "Session user", echo.Map{"loggedInUser": u})
}
