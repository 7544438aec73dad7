package handler

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/pathlab-auth/internal/middleware"
)

// The page handlers stand in for the web client's pages so the gate's
// routing decisions have somewhere to land.

func Home(c echo.Context) error {
    return respond(c, http.StatusOK, "pathlab", nil)
}

func LoginPage(c echo.Context) error {
    return respond(c, http.StatusOK, "login", nil)
}

// Dashboard echoes the page and the session user.  The gate guarantees
// a session for every /dashboard path.
func Dashboard(c echo.Context) error {
    return respond(c, http.StatusOK, "dashboard", echo.Map{
        "page":         strings.TrimPrefix(strings.TrimPrefix(c.Request().URL.Path, "/dashboard"), "/"),
        "loggedInUser": middleware.CurrentUser(c),
    })
}
