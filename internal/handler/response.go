package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/pathlab-auth/internal/apperror"
    "github.com/iliyamo/pathlab-auth/internal/observability"
)

// envelope is the JSON shape of every API response.
type envelope struct {
    Success bool   `json:"success"`
    Message string `json:"message"`
    Error   string `json:"error,omitempty"`
    Data    any    `json:"data,omitempty"`
    Status  int    `json:"status"`
}

func respond(c echo.Context, status int, message string, data any) error {
    return c.JSON(status, envelope{Success: true, Message: message, Data: data, Status: status})
}

// ErrorHandler renders any error returned by a handler or middleware as
// the failure envelope.  Only AppErrors carry their message to the client;
// 5xx causes are logged and reported to Sentry.
func ErrorHandler(log *logrus.Logger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        appErr := toAppError(err)
        req := c.Request()
        if appErr.Code >= http.StatusInternalServerError {
            log.WithFields(logrus.Fields{
                "method": req.Method,
                "path":   req.URL.Path,
            }).WithError(err).Error("request failed")
            observability.CaptureError(err, req.Method, req.URL.Path)
        }

        detail := appErr.Detail
        if detail == "" {
            detail = appErr.Message
        }
        body := envelope{Success: false, Message: appErr.Message, Error: detail, Status: appErr.Code}
        if req.Method == http.MethodHead {
            err = c.NoContent(appErr.Code)
        } else {
            err = c.JSON(appErr.Code, body)
        }
        if err != nil {
            log.WithError(err).Warn("write error response")
        }
    }
}

func toAppError(err error) *apperror.AppError {
    if appErr, ok := apperror.As(err); ok {
        return appErr
    }
    var tooLarge *http.MaxBytesError
    if errors.As(err, &tooLarge) {
        return apperror.NewTooLarge(tooLarge.Limit)
    }
    var he *echo.HTTPError
    if errors.As(err, &he) {
        msg := http.StatusText(he.Code)
        if s, ok := he.Message.(string); ok && he.Code < http.StatusInternalServerError {
            msg = s
        }
        switch {
        case he.Code == http.StatusBadRequest:
            return apperror.NewValidation("Validation Error").WithDetail(msg)
        case he.Code >= http.StatusInternalServerError:
            return apperror.NewInternal(err)
        }
        return &apperror.AppError{Code: he.Code, Type: "http_error", Message: msg}
    }
    return apperror.NewInternal(err)
}

// bind decodes the JSON body into v, turning decoder failures into a
// validation error and oversized bodies into 413.
func bind(c echo.Context, v any) error {
    if err := c.Bind(v); err != nil {
        var tooLarge *http.MaxBytesError
        if errors.As(err, &tooLarge) {
            return apperror.NewTooLarge(tooLarge.Limit)
        }
        return apperror.NewValidation("Validation Error").WithDetail("invalid request body")
    }
    return nil
}
