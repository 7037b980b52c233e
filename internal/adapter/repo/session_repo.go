package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"sakuga/internal/domain"
)

// SessionRepositoryPG implements domain.SessionRepository.
type SessionRepositoryPG struct {
	db DB
}

// NewSessionRepository creates a session repository backed by PostgreSQL.
func NewSessionRepository(db DB) *SessionRepositoryPG {
	return &SessionRepositoryPG{db: db}
}

// Create inserts a session.
func (r *SessionRepositoryPG) Create(ctx context.Context, session *domain.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO sessions (id, user_id, token, expires_at, created_at) VALUES ($1, $2, $3, $4, $5);`,
		session.ID, session.UserID, session.Token, session.ExpiresAt, session.CreatedAt,
	)
	return err
}

// GetByToken fetches a session by its opaque token.
func (r *SessionRepositoryPG) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, token, expires_at, created_at FROM sessions WHERE token = $1;`, token,
	).Scan(&s.ID, &s.UserID, &s.Token, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Delete removes a session by token. Deleting an unknown token is a no-op.
func (r *SessionRepositoryPG) Delete(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE token = $1;`, token)
	return err
}

// DeleteByUser revokes every session belonging to one user.
func (r *SessionRepositoryPG) DeleteByUser(ctx context.Context, userID string) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1;`, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// DeleteExpired prunes sessions past their expiry and returns how many
// were removed.
func (r *SessionRepositoryPG) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW();`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

var _ domain.SessionRepository = (*SessionRepositoryPG)(nil)
