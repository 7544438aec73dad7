package handler

import (
    "context"
    "database/sql"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"
)

// HealthHandler reports whether the relational store and the cache store
// are reachable.
type HealthHandler struct {
    DB    *sql.DB
    Redis *redis.Client
    Log   *logrus.Logger
}

// Health is used by load balancers and monitoring systems.  It answers 200
// when both stores respond and 503 otherwise.  Driver errors are logged,
// never returned.
func (h *HealthHandler) Health(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()

    checks := echo.Map{"database": "ok", "redis": "ok"}
    status := http.StatusOK
    if err := h.DB.PingContext(ctx); err != nil {
        h.Log.WithError(err).WithField("check", "database").Error("health check failed")
        checks["database"] = "unavailable"
        status = http.StatusServiceUnavailable
    }
    if err := h.Redis.Ping(ctx).Err(); err != nil {
        h.Log.WithError(err).WithField("check", "redis").Error("health check failed")
        checks["redis"] = "unavailable"
        status = http.StatusServiceUnavailable
    }
    return c.JSON(status, envelope{
        Success: status == http.StatusOK,
        Message: http.StatusText(status),
        Data:    checks,
        Status:  status,
    })
}
