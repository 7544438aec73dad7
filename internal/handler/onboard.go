package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/pathlab-auth/internal/apperror"
    "github.com/iliyamo/pathlab-auth/internal/middleware"
    "github.com/iliyamo/pathlab-auth/internal/service"
)

// OnboardHandler serves the lab owner signup endpoints.
type OnboardHandler struct {
    Onboarding      *service.OnboardingService
    MaxOTPBodyBytes int64
    Log             *logrus.Logger
}

func NewOnboardHandler(o *service.OnboardingService, maxOTPBody int64, log *logrus.Logger) *OnboardHandler {
    return &OnboardHandler{Onboarding: o, MaxOTPBodyBytes: maxOTPBody, Log: log}
}

type verifyReq struct {
    Email string `json:"email"`
    OTP   string `json:"otp"`
}

// Onboard: validate, rate limit, send the OTP and stage the registration.
func (h *OnboardHandler) Onboard(c echo.Context) error {
    var req service.OnboardRequest
    if err := bind(c, &req); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    if err := h.Onboarding.Request(ctx, req, middleware.ClientIP(c.Request())); err != nil {
        return err
    }
    return respond(c, http.StatusOK, "OTP sent to email", nil)
}

// Verify: check the OTP and promote the pending registration.  The body is
// capped well below the global limit.
func (h *OnboardHandler) Verify(c echo.Context) error {
    r := c.Request()
    ip := middleware.ClientIP(r)
    if r.ContentLength > h.MaxOTPBodyBytes {
        h.Log.WithFields(logrus.Fields{
            "event":         "INVALID_REQUEST_SIZE",
            "ip":            ip,
            "contentLength": r.ContentLength,
        }).Warn("otp verification body too large")
        return apperror.NewTooLarge(h.MaxOTPBodyBytes)
    }
    r.Body = http.MaxBytesReader(c.Response(), r.Body, h.MaxOTPBodyBytes)

    var req verifyReq
    if err := bind(c, &req); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
    defer cancel()

    if _, err := h.Onboarding.Verify(ctx, req.Email, req.OTP, ip); err != nil {
        return err
    }
    return respond(c, http.StatusOK, "Email verified successfully", nil)
}
