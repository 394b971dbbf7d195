package ports

import (
	"context"

	"github.com/authgate/session-auth/internal/core/domain"
)

// SessionStore owns the session lifecycle.
type SessionStore interface {
	// Create persists a session bound to user. It returns only once the
	// store has acknowledged the write.
	Create(ctx context.Context, user *domain.User) (*domain.Session, error)
	// Destroy removes the session. Destroying an absent session is not an error.
	Destroy(ctx context.Context, sessionID string) error
	// Current returns the live session for sessionID, or (nil, nil) when
	// it is absent or expired.
	Current(ctx context.Context, sessionID string) (*domain.Session, error)
}
