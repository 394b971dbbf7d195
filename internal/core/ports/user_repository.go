package ports

import (
	"context"

	"github.com/authgate/session-auth/internal/core/domain"
)

// UserRepository defines the persistence operations for user accounts.
type UserRepository interface {
	// FindByUsername returns domain.ErrUserNotFound when no user matches.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// FindByID returns domain.ErrUserNotFound when no user matches.
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// Create persists a new user and returns it with its ID assigned.
	// Implementations must enforce username uniqueness and return
	// domain.ErrUserExists on violation.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
}
