package service

import (
	"context"
	"errors"
	"time"

	"github.com/authgate/session-auth/internal/core/domain"
	"github.com/authgate/session-auth/internal/core/ports"
)

// Decision is the outcome of AccessGate.Guard.
type Decision struct {
	Allowed bool
	UserID  string
}

// Deny is the zero Decision.
var Deny = Decision{}

func Allow(userID string) Decision {
	return Decision{Allowed: true, UserID: userID}
}

// AccessGate decides whether a request may reach a protected operation.
// Guard and CurrentUserID never touch the user repository; CurrentUser is
// the explicit, separate lookup for views that need the full record.
type AccessGate struct {
	users   ports.UserRepository
	timeout time.Duration
}

func NewAccessGate(users ports.UserRepository, timeout time.Duration) *AccessGate {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &AccessGate{users: users, timeout: timeout}
}

// Guard allows when session exists and is bound to a user.
func (g *AccessGate) Guard(session *domain.Session) Decision {
	if !session.Bound() {
		return Deny
	}
	return Allow(session.User.ID)
}

func (g *AccessGate) CurrentUserID(session *domain.Session) (string, bool) {
	d := g.Guard(session)
	return d.UserID, d.Allowed
}

// CurrentUser re-resolves the session's user from the repository.
// It returns domain.ErrNotLoggedIn when the gate denies and
// domain.ErrUserNotFound when the account no longer exists.
func (g *AccessGate) CurrentUser(ctx context.Context, session *domain.Session) (*domain.User, error) {
	id, ok := g.CurrentUserID(session)
	if !ok {
		return nil, domain.ErrNotLoggedIn
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	user, err := g.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, domain.NewStorageError("find user by id", err)
	}
	return user, nil
}
