package middleware

import (
    "context"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/pathlab-auth/internal/apperror"
    "github.com/iliyamo/pathlab-auth/internal/config"
    "github.com/iliyamo/pathlab-auth/internal/model"
    "github.com/iliyamo/pathlab-auth/internal/observability"
    "github.com/iliyamo/pathlab-auth/internal/service"
)

const (
    loginPath       = "/login"
    dashboardPrefix = "/dashboard"
    dashboardRoot   = "/dashboard/default"
    authAPIPrefix   = "/api/auth/"
)

var securityHeaders = map[string]string{
    "X-Content-Type-Options":  "nosniff",
    "X-Frame-Options":         "DENY",
    "X-XSS-Protection":        "1; mode=block",
    "Referrer-Policy":         "strict-origin-when-cross-origin",
    "Permissions-Policy":      "geolocation=(), microphone=(), camera=()",
    "Content-Security-Policy": "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'",
}

// Authenticator resolves the session from the cookie pair, rotating the
// refresh token when the access token is unusable.  Implemented by
// service.AuthService.
type Authenticator interface {
    Authenticate(ctx context.Context, accessToken, refreshToken string, meta service.RequestMeta) (*model.LoggedInUser, *service.Session)
}

// Gate runs in front of every route.  It enforces the body size ceiling,
// stamps correlation headers, resolves the session and applies the page
// access policy for /login and /dashboard.
type Gate struct {
    auth    Authenticator
    cookies CookieWriter
    cfg     config.SecurityConfig
    log     *logrus.Logger
    metrics *observability.Metrics
}

func NewGate(auth Authenticator, cookies CookieWriter, cfg config.SecurityConfig, log *logrus.Logger, m *observability.Metrics) *Gate {
    return &Gate{auth: auth, cookies: cookies, cfg: cfg, log: log, metrics: m}
}

func (g *Gate) static(path string) bool {
    for _, p := range g.cfg.StaticPrefixes {
        if strings.HasPrefix(path, p) {
            return true
        }
    }
    return false
}

// Middleware returns the echo middleware.
func (g *Gate) Middleware() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            req := c.Request()
            path := req.URL.Path
            if g.static(path) {
                return next(c)
            }

            start := time.Now()
            res := c.Response()
            res.Header().Set(echo.HeaderXRequestID, uuid.NewString())
            for k, v := range securityHeaders {
                res.Header().Set(k, v)
            }
            res.Before(func() {
                res.Header().Set("X-Response-Time", fmt.Sprintf("%dms", time.Since(start).Milliseconds()))
            })

            ip := ClientIP(req)
            ua := req.UserAgent()
            fields := logrus.Fields{"method": req.Method, "path": path, "ip": ip, "userAgent": ua}
            g.log.WithFields(fields).WithFields(logrus.Fields{
                "event":     "API_REQUEST",
                "requestId": res.Header().Get(echo.HeaderXRequestID),
                "timestamp": start.UTC().Format(time.RFC3339Nano),
            }).Info("request")

            if req.ContentLength > g.cfg.MaxBodyBytes {
                g.log.WithFields(fields).WithFields(logrus.Fields{
                    "event":         "REQUEST_SIZE_EXCEEDED",
                    "contentLength": req.ContentLength,
                    "maxSize":       g.cfg.MaxBodyBytes,
                }).Warn("request body too large")
                g.metrics.Gate("too_large")
                return apperror.NewTooLarge(g.cfg.MaxBodyBytes)
            }
            if req.Body != nil {
                req.Body = http.MaxBytesReader(res, req.Body, g.cfg.MaxBodyBytes)
            }

            if g.cfg.RequestTimeout > 0 {
                ctx, cancel := context.WithTimeout(req.Context(), g.cfg.RequestTimeout)
                defer cancel()
                req = req.WithContext(ctx)
                c.SetRequest(req)
            }

            // the auth endpoints manage their own cookies
            if strings.HasPrefix(path, authAPIPrefix) {
                g.metrics.Gate("pass")
                return next(c)
            }

            access, refresh := SessionCookies(c)
            var (
                user    *model.LoggedInUser
                rotated *service.Session
            )
            if access != "" || refresh != "" {
                user, rotated = g.auth.Authenticate(req.Context(), access, refresh,
                    service.RequestMeta{IP: ip, UserAgent: ua})
            }
            if user != nil {
                SetUser(c, user)
            }

            switch {
            case path == loginPath && user != nil:
                g.attach(c, rotated)
                g.metrics.Gate("redirect_dashboard")
                return c.Redirect(http.StatusTemporaryRedirect, dashboardRoot)
            case strings.HasPrefix(path, dashboardPrefix) && user == nil:
                g.metrics.Gate("redirect_login")
                return c.Redirect(http.StatusTemporaryRedirect, loginPath)
            }
            g.attach(c, rotated)
            g.metrics.Gate("pass")
            return next(c)
        }
    }
}

func (g *Gate) attach(c echo.Context, rotated *service.Session) {
    if rotated != nil {
        g.cookies.Set(c, rotated.AccessToken, rotated.RefreshToken)
    }
}
