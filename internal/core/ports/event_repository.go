package ports

import (
	"context"

	"github.com/authgate/session-auth/internal/core/domain"
)

// EventRepository persists the authentication audit trail.
type EventRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}
