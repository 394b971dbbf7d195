package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/authgate/session-auth/internal/core/domain"
)

func testSession(expires time.Time) *domain.Session {
	return &domain.Session{
		ID:        "5b0c4a3e-8c1f-4d7e-9a57-1f2e3d4c5b6a",
		User:      domain.User{ID: "u-1", Username: "alice"},
		CreatedAt: time.Now(),
		ExpiresAt: expires,
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec("secret", false)
	sess := testSession(time.Now().Add(time.Hour))

	value, err := codec.Encode(sess)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	id, err := codec.Decode(value)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id != sess.ID {
		t.Fatalf("expected %s, got %s", sess.ID, id)
	}
}

func TestCodec_RejectsForeignSecret(t *testing.T) {
	value, err := NewCodec("other", false).Encode(testSession(time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := NewCodec("secret", false).Decode(value); err != ErrInvalidCookie {
		t.Fatalf("expected ErrInvalidCookie, got %v", err)
	}
}

func TestCodec_RejectsExpired(t *testing.T) {
	codec := NewCodec("secret", false)
	value, err := codec.Encode(testSession(time.Now().Add(-time.Minute)))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := codec.Decode(value); err != ErrInvalidCookie {
		t.Fatalf("expected ErrInvalidCookie, got %v", err)
	}
}

func TestCodec_RejectsOtherAlgorithms(t *testing.T) {
	tkn := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{ID: "sid"})
	value, err := tkn.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewCodec("secret", false).Decode(value); err != ErrInvalidCookie {
		t.Fatalf("expected ErrInvalidCookie, got %v", err)
	}
}

func TestCodec_WriteReadClear(t *testing.T) {
	e := echo.New()
	codec := NewCodec("secret", true)
	sess := testSession(time.Now().Add(time.Hour))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/login", nil), rec)
	if err := codec.Write(c, sess); err != nil {
		t.Fatalf("write: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != Name {
		t.Fatalf("expected one %s cookie, got %+v", Name, cookies)
	}
	if !cookies[0].HttpOnly || !cookies[0].Secure {
		t.Fatalf("cookie must be HttpOnly and Secure: %+v", cookies[0])
	}

	req := httptest.NewRequest(http.MethodGet, "/profile/main", nil)
	req.AddCookie(cookies[0])
	c = e.NewContext(req, httptest.NewRecorder())
	if got := codec.SessionID(c); got != sess.ID {
		t.Fatalf("expected %s, got %q", sess.ID, got)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), rec)
	codec.Clear(c)
	cleared := rec.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("expected expiring cookie, got %+v", cleared)
	}
}

func TestCodec_SessionIDMissingOrGarbage(t *testing.T) {
	e := echo.New()
	codec := NewCodec("secret", false)

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if got := codec.SessionID(c); got != "" {
		t.Fatalf("expected empty id without cookie, got %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: Name, Value: "garbage"})
	c = e.NewContext(req, httptest.NewRecorder())
	if got := codec.SessionID(c); got != "" {
		t.Fatalf("expected empty id for garbage cookie, got %q", got)
	}
}
