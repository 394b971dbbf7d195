// Package cookie carries the session handle between requests. The cookie
// value is an HS256 token whose jti is the session ID, so a tampered or
// foreign cookie never reaches the session store.
package cookie

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/authgate/session-auth/internal/core/domain"
)

// Name is the session cookie name.
const Name = "sid"

var ErrInvalidCookie = errors.New("invalid session cookie")

// Codec signs, reads and clears the session cookie.
type Codec struct {
	secret []byte
	secure bool
}

// NewCodec returns a Codec signing with secret. secure sets the cookie's
// Secure attribute and should be true outside development.
func NewCodec(secret string, secure bool) *Codec {
	return &Codec{secret: []byte(secret), secure: secure}
}

// Encode signs the session handle.
func (c *Codec) Encode(session *domain.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:      session.ID,
		Subject: session.User.ID,
	}
	if !session.CreatedAt.IsZero() {
		claims.IssuedAt = jwt.NewNumericDate(session.CreatedAt)
	}
	if !session.ExpiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(session.ExpiresAt)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies value and returns the session ID it carries.
func (c *Codec) Decode(value string) (string, error) {
	var claims jwt.RegisteredClaims
	tkn, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid || claims.ID == "" {
		return "", ErrInvalidCookie
	}
	return claims.ID, nil
}

// Write sets the session cookie on the response.
func (c *Codec) Write(ec echo.Context, session *domain.Session) error {
	value, err := c.Encode(session)
	if err != nil {
		return err
	}
	ec.SetCookie(&http.Cookie{
		Name:     Name,
		Value:    value,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// SessionID returns the verified session ID of the request, or "" when the
// cookie is missing or invalid.
func (c *Codec) SessionID(ec echo.Context) string {
	ck, err := ec.Cookie(Name)
	if err != nil || ck.Value == "" {
		return ""
	}
	id, err := c.Decode(ck.Value)
	if err != nil {
		return ""
	}
	return id
}

// Clear expires the session cookie on the client.
func (c *Codec) Clear(ec echo.Context) {
	ec.SetCookie(&http.Cookie{
		Name:     Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
