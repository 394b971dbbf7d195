package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/authgate/session-auth/internal/core/domain"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

type stubUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User

	findByUsernameCalls int
	findByIDCalls       int
	createCalls         int

	findErr   error
	createErr error
}

func newStubUsers() *stubUsers {
	return &stubUsers{users: make(map[string]*domain.User)}
}

func (r *stubUsers) seed(username, hash string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := &domain.User{ID: "u-" + strconv.Itoa(len(r.users)+1), Username: username, PasswordHash: hash}
	r.users[username] = u
	cp := *u
	return &cp
}

func (r *stubUsers) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findByUsernameCalls + r.findByIDCalls + r.createCalls
}

func (r *stubUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findByUsernameCalls++
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *stubUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findByIDCalls++
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUsers) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, ok := r.users[user.Username]; ok {
		return nil, domain.ErrUserExists
	}
	cp := *user
	cp.ID = "u-" + strconv.Itoa(len(r.users)+1)
	r.users[cp.Username] = &cp
	out := cp
	return &out, nil
}

type stubSessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	creates  int
	destroys int
	err      error
}

func newStubSessions() *stubSessions {
	return &stubSessions{sessions: make(map[string]*domain.Session)}
}

func (s *stubSessions) Create(_ context.Context, user *domain.User) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.err != nil {
		return nil, s.err
	}
	sess := &domain.Session{
		ID:        "sid-" + strconv.Itoa(s.creates),
		User:      user.Public(),
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *stubSessions) Destroy(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroys++
	if s.err != nil {
		return s.err
	}
	delete(s.sessions, id)
	return nil
}

func (s *stubSessions) Current(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.sessions[id], nil
}

// blockingHasher waits until its context ends.
type blockingHasher struct{}

func (blockingHasher) Hash(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (blockingHasher) Verify(ctx context.Context, _, _ string) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

type fixture struct {
	svc      *AuthService
	users    *stubUsers
	sessions *stubSessions
	hasher   *BcryptHasher
}

func newFixture() *fixture {
	users := newStubUsers()
	sessions := newStubSessions()
	hasher := NewBcryptHasher(bcrypt.MinCost)
	return &fixture{
		svc:      NewAuthService(users, sessions, hasher, NewPasswordPolicy(), Timeouts{}, zerolog.Nop()),
		users:    users,
		sessions: sessions,
		hasher:   hasher,
	}
}

func (f *fixture) seed(t *testing.T, username, password string) *domain.User {
	t.Helper()
	hash, err := f.hasher.Hash(context.Background(), password)
	if err != nil {
		t.Fatalf("seed hash: %v", err)
	}
	return f.users.seed(username, hash)
}

func assertReason(t *testing.T, err error, reason string) {
	t.Helper()
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError(%q), got %v", reason, err)
	}
	if ve.Reason != reason {
		t.Fatalf("expected reason %q, got %q", reason, ve.Reason)
	}
}

// ── Signup ────────────────────────────────────────────────────────────────────

func TestAuthService_Signup_Success(t *testing.T) {
	f := newFixture()

	if err := f.svc.Signup(context.Background(), "alice", "Passw0rd"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	stored := f.users.users["alice"]
	if stored == nil {
		t.Fatalf("user not stored")
	}
	if stored.PasswordHash == "Passw0rd" {
		t.Fatalf("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("Passw0rd")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
	if stored.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be set")
	}
}

func TestAuthService_Signup_EmptyFields(t *testing.T) {
	for _, tc := range []struct{ username, password string }{
		{"", "Passw0rd"},
		{"alice", ""},
		{"", ""},
	} {
		f := newFixture()
		err := f.svc.Signup(context.Background(), tc.username, tc.password)
		assertReason(t, err, domain.MsgFieldsEmpty)
		if f.users.total() != 0 {
			t.Fatalf("empty fields must not reach the repository")
		}
	}
}

func TestAuthService_Signup_WeakPassword(t *testing.T) {
	for _, pw := range []string{"short1A", "alllowercase1", "ALLUPPER1", "NoDigitsHere"} {
		f := newFixture()
		assertReason(t, f.svc.Signup(context.Background(), "alice", pw), domain.MsgWeakPassword)
		if f.users.total() != 0 {
			t.Fatalf("%q: weak password must not reach the repository", pw)
		}
	}
}

func TestAuthService_Signup_DuplicateUsername(t *testing.T) {
	f := newFixture()
	original := f.seed(t, "alice", "Passw0rd")

	assertReason(t, f.svc.Signup(context.Background(), "alice", "0therPass"), domain.MsgUsernameExists)
	if f.users.createCalls != 0 {
		t.Fatalf("create must not be called for an existing username")
	}
	if f.users.users["alice"].PasswordHash != original.PasswordHash {
		t.Fatalf("existing user was modified")
	}
}

func TestAuthService_Signup_CaseSensitive(t *testing.T) {
	f := newFixture()
	f.seed(t, "alice", "Passw0rd")

	if err := f.svc.Signup(context.Background(), "Alice", "Passw0rd"); err != nil {
		t.Fatalf("usernames differing in case are distinct: %v", err)
	}
}

func TestAuthService_Signup_RaceLoserGetsStorageError(t *testing.T) {
	f := newFixture()
	f.users.createErr = domain.ErrUserExists

	err := f.svc.Signup(context.Background(), "alice", "Passw0rd")
	var se *domain.StorageError
	if !errors.As(err, &se) || !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected StorageError wrapping ErrUserExists, got %v", err)
	}
}

func TestAuthService_Signup_StoreUnavailable(t *testing.T) {
	f := newFixture()
	f.users.findErr = errors.New("connection refused")

	err := f.svc.Signup(context.Background(), "alice", "Passw0rd")
	var se *domain.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if f.users.createCalls != 0 {
		t.Fatalf("create must not run after a failed lookup")
	}
}

func TestAuthService_Signup_HashTimeout(t *testing.T) {
	users := newStubUsers()
	svc := NewAuthService(users, newStubSessions(), blockingHasher{}, NewPasswordPolicy(),
		Timeouts{Hash: 20 * time.Millisecond}, zerolog.Nop())

	err := svc.Signup(context.Background(), "alice", "Passw0rd")
	var se *domain.StorageError
	if !errors.As(err, &se) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected StorageError wrapping deadline, got %v", err)
	}
	if users.createCalls != 0 {
		t.Fatalf("no user may be created when hashing times out")
	}
}

// ── Login ─────────────────────────────────────────────────────────────────────

func TestAuthService_Login_Success(t *testing.T) {
	f := newFixture()
	alice := f.seed(t, "alice", "Passw0rd")

	sess, err := f.svc.Login(context.Background(), "alice", "Passw0rd")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sess.User.ID != alice.ID {
		t.Fatalf("session bound to %q, want %q", sess.User.ID, alice.ID)
	}
	if sess.User.PasswordHash != "" {
		t.Fatalf("session must not carry the password hash")
	}
	if f.sessions.creates != 1 {
		t.Fatalf("expected exactly one session, got %d", f.sessions.creates)
	}
}

func TestAuthService_Login_IncorrectCredentialsLookAlike(t *testing.T) {
	f := newFixture()
	f.seed(t, "alice", "Passw0rd")

	_, wrongPw := f.svc.Login(context.Background(), "alice", "Wrong1Pass")
	_, unknown := f.svc.Login(context.Background(), "bob", "Passw0rd")

	assertReason(t, wrongPw, domain.MsgIncorrectCredentials)
	assertReason(t, unknown, domain.MsgIncorrectCredentials)
	if wrongPw.Error() != unknown.Error() {
		t.Fatalf("rejections must be indistinguishable: %q vs %q", wrongPw, unknown)
	}
	if f.sessions.creates != 0 {
		t.Fatalf("no session may be created on failure")
	}
}

func TestAuthService_Login_ValidationOrder(t *testing.T) {
	f := newFixture()
	f.seed(t, "alice", "Passw0rd")

	_, err := f.svc.Login(context.Background(), "alice", "")
	assertReason(t, err, domain.MsgFieldsEmpty)

	_, err = f.svc.Login(context.Background(), "alice", "weak")
	assertReason(t, err, domain.MsgWeakPassword)

	if f.users.findByUsernameCalls != 0 {
		t.Fatalf("cheap checks must run before the lookup")
	}
}

func TestAuthService_Login_SessionStoreFailure(t *testing.T) {
	f := newFixture()
	f.seed(t, "alice", "Passw0rd")
	f.sessions.err = errors.New("redis down")

	sess, err := f.svc.Login(context.Background(), "alice", "Passw0rd")
	var se *domain.StorageError
	if !errors.As(err, &se) || sess != nil {
		t.Fatalf("expected StorageError and no session, got %v %v", sess, err)
	}
}

func TestAuthService_Login_VerifyTimeout(t *testing.T) {
	users := newStubUsers()
	users.seed("alice", "stored-hash")
	sessions := newStubSessions()
	svc := NewAuthService(users, sessions, blockingHasher{}, NewPasswordPolicy(),
		Timeouts{Hash: 20 * time.Millisecond}, zerolog.Nop())

	_, err := svc.Login(context.Background(), "alice", "Passw0rd")
	var se *domain.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if sessions.creates != 0 {
		t.Fatalf("no session may be created when verification times out")
	}
}

// ── Logout ────────────────────────────────────────────────────────────────────

func TestAuthService_Logout(t *testing.T) {
	f := newFixture()
	f.seed(t, "alice", "Passw0rd")

	sess, err := f.svc.Login(context.Background(), "alice", "Passw0rd")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := f.svc.Logout(context.Background(), sess.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := f.svc.Logout(context.Background(), sess.ID); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if cur, _ := f.sessions.Current(context.Background(), sess.ID); cur != nil {
		t.Fatalf("session still resolvable after logout")
	}
}

func TestAuthService_Logout_NoSession(t *testing.T) {
	f := newFixture()
	if err := f.svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("logout without session: %v", err)
	}
	if f.sessions.destroys != 0 {
		t.Fatalf("empty session id must not reach the store")
	}
}

func TestAuthService_Logout_StoreFailure(t *testing.T) {
	f := newFixture()
	f.sessions.err = errors.New("redis down")

	var se *domain.StorageError
	if err := f.svc.Logout(context.Background(), "sid-1"); !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %v", err)
	}
}

// ── End to end ────────────────────────────────────────────────────────────────

func TestAuthService_AliceScenario(t *testing.T) {
	f := newFixture()
	gate := NewAccessGate(f.users, 0)
	ctx := context.Background()

	if err := f.svc.Signup(ctx, "alice", "Passw0rd"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	assertReason(t, f.svc.Signup(ctx, "alice", "Passw0rd"), domain.MsgUsernameExists)

	// The policy also guards login, so a seven-character candidate such as
	// "wrong1A" is reported as weak rather than as incorrect credentials.
	_, err := f.svc.Login(ctx, "alice", "wrong1A")
	assertReason(t, err, domain.MsgWeakPassword)

	_, err = f.svc.Login(ctx, "alice", "Wrong1Pass")
	assertReason(t, err, domain.MsgIncorrectCredentials)
	if f.sessions.creates != 0 {
		t.Fatalf("no session may exist before a successful login")
	}

	sess, err := f.svc.Login(ctx, "alice", "Passw0rd")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	current, _ := f.sessions.Current(ctx, sess.ID)
	if !gate.Guard(current).Allowed {
		t.Fatalf("expected access while logged in")
	}
	user, err := gate.CurrentUser(ctx, current)
	if err != nil || user.Username != "alice" {
		t.Fatalf("expected alice, got %v %v", user, err)
	}

	if err := f.svc.Logout(ctx, sess.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	current, _ = f.sessions.Current(ctx, sess.ID)
	if gate.Guard(current).Allowed {
		t.Fatalf("expected denial after logout")
	}
}

// ── Audit trail ───────────────────────────────────────────────────────────────

type stubEvents struct {
	mu     sync.Mutex
	events []domain.AuthEvent
	err    error
}

func (s *stubEvents) InsertEvent(_ context.Context, event *domain.AuthEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, *event)
	return nil
}

func TestAuthService_RecordsEvents(t *testing.T) {
	f := newFixture()
	events := &stubEvents{}
	f.svc.WithEvents(events)
	ctx := context.Background()

	if err := f.svc.Signup(ctx, "alice", "Passw0rd"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := f.svc.Login(ctx, "alice", "Wrong1Pass"); err == nil {
		t.Fatalf("expected rejected login")
	}
	sess, err := f.svc.Login(ctx, "alice", "Passw0rd")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := f.svc.Logout(ctx, sess.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	want := []domain.AuthEventType{
		domain.EventSignup,
		domain.EventLoginFailure,
		domain.EventLoginSuccess,
		domain.EventLogout,
	}
	if len(events.events) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), events.events)
	}
	for i, typ := range want {
		if events.events[i].Type != typ {
			t.Fatalf("event %d: expected %s, got %s", i, typ, events.events[i].Type)
		}
		if events.events[i].Timestamp.IsZero() {
			t.Fatalf("event %d: missing timestamp", i)
		}
	}
	if events.events[2].SessionID != sess.ID {
		t.Fatalf("login event must carry the session id")
	}
	logout := events.events[3]
	if logout.SessionID != sess.ID || logout.Username != "alice" || logout.UserID != sess.User.ID {
		t.Fatalf("logout event must identify the user, got %+v", logout)
	}
}

func TestAuthService_EventFailureDoesNotFailFlow(t *testing.T) {
	f := newFixture()
	f.svc.WithEvents(&stubEvents{err: errors.New("mongo down")})

	if err := f.svc.Signup(context.Background(), "alice", "Passw0rd"); err != nil {
		t.Fatalf("signup must succeed when auditing fails: %v", err)
	}
}

func TestAuthService_LogoutEventForUnknownSession(t *testing.T) {
	f := newFixture()
	events := &stubEvents{}
	f.svc.WithEvents(events)

	if err := f.svc.Logout(context.Background(), "sid-gone"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(events.events) != 1 || events.events[0].SessionID != "sid-gone" || events.events[0].UserID != "" {
		t.Fatalf("unexpected events: %+v", events.events)
	}
	if f.sessions.destroys != 1 {
		t.Fatalf("destroy must still run, got %d calls", f.sessions.destroys)
	}
}
