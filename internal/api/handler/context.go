package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/authgate/session-auth/internal/api/middleware"
	"github.com/authgate/session-auth/internal/core/domain"
)

// ctxSession returns the session injected by the RequireSession middleware,
// or nil when the route is not gated.
func ctxSession(c echo.Context) *domain.Session {
	sess, _ := c.Get(middleware.ContextSessionKey).(*domain.Session)
	return sess
}
