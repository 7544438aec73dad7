package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/pathlab-auth/internal/handler"    // handlers for the session, onboarding and page endpoints
	"github.com/iliyamo/pathlab-auth/internal/middleware" // role enforcement on top of the gate's session
	"github.com/iliyamo/pathlab-auth/internal/model"
)

// RegisterRoutes registers the operational endpoints: the health check
// used by load balancers and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler, metrics http.Handler) {
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(metrics))
}

// RegisterAuth registers the session endpoints under /api/auth.  The gate
// does not resolve sessions on this prefix; each handler reads the
// cookies it needs itself.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/api/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.GET("/logout", a.Logout)

	// Any signed-in principal may read its own session.
	e.GET("/api/session/me", a.Me, middleware.RequireRole(model.RoleUser))
}

// RegisterOnboarding registers the OTP-gated admin signup.
func RegisterOnboarding(e *echo.Echo, o *handler.OnboardHandler) {
	g := e.Group("/api/on-board")
	g.POST("/admin", o.Onboard)
	g.POST("/admin/verify", o.Verify)
}

// RegisterPages registers the page stand-ins the gate routes between.
// /dashboard/onboard-admins is reserved for key admins.
func RegisterPages(e *echo.Echo) {
	e.GET("/", handler.Home)
	e.GET("/login", handler.LoginPage)
	e.GET("/dashboard/onboard-admins", handler.Dashboard, middleware.RequireRole(model.RoleKeyAdmin))
	e.GET("/dashboard", handler.Dashboard)
	e.GET("/dashboard/*", handler.Dashboard)
}
