package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/authgate/session-auth/internal/core/domain"
)

// CurrentUserResolver is the part of the access gate the profile views use.
type CurrentUserResolver interface {
	CurrentUserID(session *domain.Session) (string, bool)
	CurrentUser(ctx context.Context, session *domain.Session) (*domain.User, error)
}

// ProfileHandler serves the pages behind the login gate.
type ProfileHandler struct {
	gate CurrentUserResolver
}

func NewProfileHandler(gate CurrentUserResolver) *ProfileHandler {
	return &ProfileHandler{gate: gate}
}

// Main returns the logged-in user's profile, re-read from the user store.
//
// @Summary      Own profile
// @Tags         profile
// @Produce      json
// @Success      200   {object}  profileResponse
// @Success      303
// @Failure      500   {object}  errorResponse
// @Router       /profile/main [get]
func (h *ProfileHandler) Main(c echo.Context) error {
	user, err := h.gate.CurrentUser(c.Request().Context(), ctxSession(c))
	if err != nil {
		if errors.Is(err, domain.ErrNotLoggedIn) || errors.Is(err, domain.ErrUserNotFound) {
			return c.Redirect(http.StatusSeeOther, LoginPath)
		}
		return err
	}
	return c.JSON(http.StatusOK, profileResponse{User: user})
}

// Private returns the private page. It needs no user lookup.
//
// @Summary      Private page
// @Tags         profile
// @Produce      json
// @Success      200   {object}  privateResponse
// @Success      303
// @Router       /profile/private [get]
func (h *ProfileHandler) Private(c echo.Context) error {
	userID, ok := h.gate.CurrentUserID(ctxSession(c))
	if !ok {
		return c.Redirect(http.StatusSeeOther, LoginPath)
	}
	return c.JSON(http.StatusOK, privateResponse{
		Message: "private area",
		UserID:  userID,
	})
}
