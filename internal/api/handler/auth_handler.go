package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/authgate/session-auth/internal/api/cookie"
	"github.com/authgate/session-auth/internal/core/domain"
	"github.com/authgate/session-auth/internal/core/ports"
	"github.com/authgate/session-auth/internal/pkg/metrics"
)

// AuthHandler serves signup, login and logout. Service errors are returned
// as-is for the HTTP error handler to render.
type AuthHandler struct {
	authService ports.AuthService
	cookies     *cookie.Codec
}

func NewAuthHandler(authService ports.AuthService, cookies *cookie.Codec) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies}
}

// Signup registers a new user account.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Username and password"
// @Success      201   {object}  redirectResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	if err := h.authService.Signup(c.Request().Context(), req.Username, req.Password); err != nil {
		metrics.SignupsTotal.WithLabelValues(resultLabel(err)).Inc()
		return err
	}

	metrics.SignupsTotal.WithLabelValues(metrics.ResultOK).Inc()
	return c.JSON(http.StatusCreated, redirectResponse{
		Message:  "account created",
		Redirect: LoginPath,
	})
}

// Login checks credentials and opens a session carried by the sid cookie.
//
// @Summary      Log in
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Username and password"
// @Success      200   {object}  redirectResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	session, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(resultLabel(err)).Inc()
		return err
	}
	if err := h.cookies.Write(c, session); err != nil {
		metrics.LoginsTotal.WithLabelValues(metrics.ResultError).Inc()
		return domain.NewStorageError("write session cookie", err)
	}

	metrics.LoginsTotal.WithLabelValues(metrics.ResultOK).Inc()
	user := session.User
	return c.JSON(http.StatusOK, redirectResponse{
		Message:  "logged in",
		Redirect: ProfilePath,
		User:     &user,
	})
}

// Logout destroys the current session, if any, and clears the cookie.
//
// @Summary      Log out
// @Tags         auth
// @Produce      json
// @Success      200   {object}  redirectResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.authService.Logout(c.Request().Context(), h.cookies.SessionID(c)); err != nil {
		return err
	}
	h.cookies.Clear(c)

	metrics.LogoutsTotal.Inc()
	return c.JSON(http.StatusOK, redirectResponse{
		Message:  "logged out",
		Redirect: HomePath,
	})
}

func resultLabel(err error) string {
	if domain.IsValidation(err) {
		return metrics.ResultRejected
	}
	return metrics.ResultError
}
