package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"sakuga/internal/domain"
)

const sessionTTL = 30 * 24 * time.Hour

// Service issues and validates sessions against the user store.
type Service struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	now      func() time.Time
}

func NewService(users domain.UserRepository, sessions domain.SessionRepository) *Service {
	return &Service{users: users, sessions: sessions, now: time.Now}
}

// Register creates an account. Usernames are lowercased; duplicates
// surface as domain.ErrDuplicate.
func (s *Service) Register(ctx context.Context, username, password, email string) (*domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, errors.New("auth: username and password are required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a fresh 30-day session. Wrong
// username and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*domain.User, *domain.Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrUnauthorized
		}
		return nil, nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, nil, domain.ErrUnauthorized
	}

	session, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

func (s *Service) issueSession(ctx context.Context, userID string) (*domain.Session, error) {
	now := s.now().UTC()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ChangePassword verifies the current password, stores the new hash,
// revokes every existing session of the user, and issues a fresh one so
// the caller stays logged in.
func (s *Service) ChangePassword(ctx context.Context, user *domain.User, current, next string) (*domain.Session, error) {
	if !CheckPassword(user.PasswordHash, current) {
		return nil, domain.ErrUnauthorized
	}
	hash, err := HashPassword(next)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	if _, err := s.sessions.DeleteByUser(ctx, user.ID); err != nil {
		return nil, err
	}
	return s.issueSession(ctx, user.ID)
}

// Logout revokes a session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves a bearer token to its user. Expired sessions are
// deleted on sight.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if session.Expired(s.now()) {
		_ = s.sessions.Delete(ctx, token)
		return nil, domain.ErrUnauthorized
	}
	return s.users.GetByID(ctx, session.UserID)
}
