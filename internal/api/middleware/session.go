package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/authgate/session-auth/internal/api/cookie"
	"github.com/authgate/session-auth/internal/core/domain"
	"github.com/authgate/session-auth/internal/core/ports"
	"github.com/authgate/session-auth/internal/core/service"
	"github.com/authgate/session-auth/internal/pkg/metrics"
)

// ContextSessionKey is where RequireSession stores the current *domain.Session.
const ContextSessionKey = "session"

// RequireSession resolves the request's session and lets the access gate
// decide. Denied requests are redirected to loginPath; allowed ones carry the
// session in the echo context under ContextSessionKey.
func RequireSession(sessions ports.SessionStore, gate *service.AccessGate, cookies *cookie.Codec, loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var current *domain.Session
			if id := cookies.SessionID(c); id != "" {
				sess, err := sessions.Current(c.Request().Context(), id)
				if err != nil {
					return domain.NewStorageError("load session", err)
				}
				current = sess
			}

			if !gate.Guard(current).Allowed {
				metrics.AccessDecisionsTotal.WithLabelValues("deny").Inc()
				return c.Redirect(http.StatusSeeOther, loginPath)
			}

			metrics.AccessDecisionsTotal.WithLabelValues("allow").Inc()
			c.Set(ContextSessionKey, current)
			return next(c)
		}
	}
}
