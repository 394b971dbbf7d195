package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/authgate/session-auth/internal/core/domain"
	"github.com/authgate/session-auth/internal/core/ports"
)

const (
	defaultHashTimeout  = 5 * time.Second
	defaultStoreTimeout = 3 * time.Second

	// timingPassword feeds the stand-in hash verified for unknown usernames.
	timingPassword = "Timing-Equaliser-0"
)

// Timeouts bound the suspending steps of a flow. Zero values fall back to defaults.
type Timeouts struct {
	Hash  time.Duration
	Store time.Duration
}

// AuthService implements signup, login and logout.
//
// Steps within a flow run strictly in sequence. Cheap checks (empty fields,
// password policy) run before any store access. Validation failures come back
// as *domain.ValidationError; store, session and hasher failures (timeouts
// included) come back as *domain.StorageError.
type AuthService struct {
	users    ports.UserRepository
	sessions ports.SessionStore
	hasher   ports.CredentialHasher
	policy   ports.PasswordPolicy
	events   ports.EventRepository
	timeouts Timeouts
	log      zerolog.Logger

	standIn atomic.Pointer[string]
}

func NewAuthService(
	users ports.UserRepository,
	sessions ports.SessionStore,
	hasher ports.CredentialHasher,
	policy ports.PasswordPolicy,
	timeouts Timeouts,
	log zerolog.Logger,
) *AuthService {
	if timeouts.Hash <= 0 {
		timeouts.Hash = defaultHashTimeout
	}
	if timeouts.Store <= 0 {
		timeouts.Store = defaultStoreTimeout
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		policy:   policy,
		timeouts: timeouts,
		log:      log,
	}
}

// WithEvents enables the audit trail. Recording is best-effort: a failed
// insert is logged and never fails the flow.
func (s *AuthService) WithEvents(events ports.EventRepository) *AuthService {
	s.events = events
	return s
}

// Signup registers a new user. On success the caller sends the user to login.
func (s *AuthService) Signup(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return domain.NewValidationError(domain.MsgFieldsEmpty)
	}
	if err := s.policy.Check(password); err != nil {
		return err
	}

	existing, err := s.lookup(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.NewValidationError(domain.MsgUsernameExists)
	}

	hash, err := s.hash(ctx, password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()

	// The lookup above is check-then-act. Two concurrent signups can both pass
	// it; the repository's uniqueness guarantee makes the loser fail here with
	// domain.ErrUserExists, surfaced as a StorageError.
	created, err := s.users.Create(storeCtx, user)
	if err != nil {
		return domain.NewStorageError("create user", err)
	}

	s.log.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user signed up")
	s.record(ctx, domain.AuthEvent{Type: domain.EventSignup, Username: created.Username, UserID: created.ID})
	return nil
}

// Login checks credentials and opens a session bound to the resolved user.
// The session is returned only after the store has acknowledged it.
//
// The password policy is applied to the login candidate too, so accounts whose
// password no longer meets it cannot log in. This mirrors signup deliberately.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	if username == "" || password == "" {
		return nil, domain.NewValidationError(domain.MsgFieldsEmpty)
	}
	if err := s.policy.Check(password); err != nil {
		return nil, err
	}

	user, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}

	// Unknown usernames still pay for one verification so that response time
	// does not reveal which usernames exist.
	var target string
	if user != nil {
		target = user.PasswordHash
	} else {
		target = s.standInHash(ctx)
	}

	matched := false
	if target != "" {
		matched, err = s.verify(ctx, password, target)
		if err != nil {
			return nil, err
		}
	}
	if user == nil || !matched {
		s.log.Debug().Str("username", username).Msg("login rejected")
		failure := domain.AuthEvent{Type: domain.EventLoginFailure, Username: username}
		if user != nil {
			failure.UserID = user.ID
		}
		s.record(ctx, failure)
		return nil, domain.NewValidationError(domain.MsgIncorrectCredentials)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()

	session, err := s.sessions.Create(storeCtx, user)
	if err != nil {
		return nil, domain.NewStorageError("create session", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("user logged in")
	s.record(ctx, domain.AuthEvent{
		Type:      domain.EventLoginSuccess,
		Username:  user.Username,
		UserID:    user.ID,
		SessionID: session.ID,
	})
	return session, nil
}

// Logout destroys the session. An empty or already destroyed session is not an error.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	event := domain.AuthEvent{Type: domain.EventLogout, SessionID: sessionID}
	if s.events != nil {
		s.identify(ctx, &event)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()

	if err := s.sessions.Destroy(storeCtx, sessionID); err != nil {
		return domain.NewStorageError("destroy session", err)
	}

	s.log.Info().Str("session_id", sessionID).Str("user_id", event.UserID).Msg("user logged out")
	s.record(ctx, event)
	return nil
}

// lookup returns (nil, nil) when the username is unknown.
func (s *AuthService) lookup(ctx context.Context, username string) (*domain.User, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()

	user, err := s.users.FindByUsername(storeCtx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil
		}
		return nil, domain.NewStorageError("find user", err)
	}
	return user, nil
}

func (s *AuthService) hash(ctx context.Context, password string) (string, error) {
	hashCtx, cancel := context.WithTimeout(ctx, s.timeouts.Hash)
	defer cancel()

	hash, err := s.hasher.Hash(hashCtx, password)
	if err != nil {
		return "", domain.NewStorageError("hash password", err)
	}
	return hash, nil
}

func (s *AuthService) verify(ctx context.Context, password, hash string) (bool, error) {
	hashCtx, cancel := context.WithTimeout(ctx, s.timeouts.Hash)
	defer cancel()

	ok, err := s.hasher.Verify(hashCtx, password, hash)
	if err != nil {
		return false, domain.NewStorageError("verify password", err)
	}
	return ok, nil
}

// identify fills the event's user from the session about to be destroyed.
// A missing session or a lookup failure leaves the user fields empty.
func (s *AuthService) identify(ctx context.Context, event *domain.AuthEvent) {
	storeCtx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()

	session, err := s.sessions.Current(storeCtx, event.SessionID)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", event.SessionID).Msg("logout: session lookup failed")
		return
	}
	if session != nil {
		event.Username = session.User.Username
		event.UserID = session.User.ID
	}
}

func (s *AuthService) record(ctx context.Context, event domain.AuthEvent) {
	if s.events == nil {
		return
	}
	event.Timestamp = time.Now().UTC()

	storeCtx, cancel := context.WithTimeout(ctx, s.timeouts.Store)
	defer cancel()

	if err := s.events.InsertEvent(storeCtx, &event); err != nil {
		s.log.Warn().Err(err).Str("event", string(event.Type)).Msg("audit event not recorded")
	}
}

// standInHash lazily produces a real hash used to equalise timing for unknown
// usernames. It returns "" when the hash cannot be produced yet.
func (s *AuthService) standInHash(ctx context.Context) string {
	if h := s.standIn.Load(); h != nil {
		return *h
	}

	hashCtx, cancel := context.WithTimeout(ctx, s.timeouts.Hash)
	defer cancel()

	h, err := s.hasher.Hash(hashCtx, timingPassword)
	if err != nil {
		s.log.Warn().Err(err).Msg("stand-in hash unavailable")
		return ""
	}
	s.standIn.CompareAndSwap(nil, &h)
	return *s.standIn.Load()
}
