package ports

import (
	"context"

	"github.com/authgate/session-auth/internal/core/domain"
)

// AuthService is the signup/login/logout use case. Rejections are
// *domain.ValidationError; everything else is an infrastructure failure.
type AuthService interface {
	Signup(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (*domain.Session, error)
	Logout(ctx context.Context, sessionID string) error
}
