package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"sakuga/internal/domain"
)

type memoryUsers struct {
	users map[string]*domain.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[string]*domain.User{}}
}

func (m *memoryUsers) Create(_ context.Context, user *domain.User) error {
	if _, ok := m.users[user.Username]; ok {
		return domain.ErrDuplicate
	}
	m.users[user.Username] = user
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memoryUsers) UpdatePassword(_ context.Context, id, passwordHash string) error {
	for _, u := range m.users {
		if u.ID == id {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return domain.ErrNotFound
}

type memorySessions struct {
	sessions map[string]*domain.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[string]*domain.Session{}}
}

func (m *memorySessions) Create(_ context.Context, s *domain.Session) error {
	m.sessions[s.Token] = s
	return nil
}

func (m *memorySessions) GetByToken(_ context.Context, token string) (*domain.Session, error) {
	if s, ok := m.sessions[token]; ok {
		return s, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memorySessions) Delete(_ context.Context, token string) error {
	delete(m.sessions, token)
	return nil
}

func (m *memorySessions) DeleteByUser(_ context.Context, userID string) (int, error) {
	n := 0
	for token, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

func (m *memorySessions) DeleteExpired(context.Context) (int, error) { return 0, nil }

func newTestService() (*Service, *memorySessions) {
	sessions := newMemorySessions()
	return NewService(newMemoryUsers(), sessions), sessions
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice", "hunter22", "alice@example.com")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("username = %q, want lowercased alice", user.Username)
	}
	if user.PasswordHash == "hunter22" {
		t.Fatalf("password stored in plain text")
	}

	loggedIn, session, err := svc.Login(ctx, "alice", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Fatalf("login returned wrong user")
	}
	if session.Token == "" {
		t.Fatalf("session token empty")
	}
	if !session.ExpiresAt.After(time.Now().Add(29 * 24 * time.Hour)) {
		t.Fatalf("expiry = %v, want about 30 days out", session.ExpiresAt)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "hunter22", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(ctx, "alice", "wrong"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized for wrong password", err)
	}
	if _, _, err := svc.Login(ctx, "nobody", "hunter22"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized for unknown user", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "pw1", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "ALICE", "pw2", ""); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestAuthenticateExpiredSession(t *testing.T) {
	svc, sessions := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "hunter22", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, session, err := svc.Login(ctx, "alice", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	user, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("user = %q, want alice", user.Username)
	}

	sessions.sessions[session.Token].ExpiresAt = time.Now().Add(-time.Hour)
	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized for expired session", err)
	}
	if _, ok := sessions.sessions[session.Token]; ok {
		t.Fatalf("expired session should be deleted on sight")
	}
}

func TestChangePassword(t *testing.T) {
	svc, sessions := newTestService()
	ctx := context.Background()
	user, err := svc.Register(ctx, "alice", "hunter22", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	_, oldSession, err := svc.Login(ctx, "alice", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := svc.ChangePassword(ctx, user, "wrong", "newpass1"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized for wrong current password", err)
	}

	newSession, err := svc.ChangePassword(ctx, user, "hunter22", "newpass1")
	if err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, ok := sessions.sessions[oldSession.Token]; ok {
		t.Fatalf("old session should be revoked")
	}
	if _, err := svc.Authenticate(ctx, newSession.Token); err != nil {
		t.Fatalf("authenticate with replacement session: %v", err)
	}

	if _, _, err := svc.Login(ctx, "alice", "hunter22"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized for old password", err)
	}
	if _, _, err := svc.Login(ctx, "alice", "newpass1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "hunter22", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, session, err := svc.Login(ctx, "alice", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Logout(ctx, session.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized after logout", err)
	}
}
