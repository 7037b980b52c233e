package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"sakuga/internal/domain"
)

// UserRepositoryPG implements domain.UserRepository.
type UserRepositoryPG struct {
	db DB
}

// NewUserRepository creates a user repository backed by PostgreSQL.
func NewUserRepository(db DB) *UserRepositoryPG {
	return &UserRepositoryPG{db: db}
}

// Create inserts an account. A taken username returns ErrDuplicate.
func (r *UserRepositoryPG) Create(ctx context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, username, password_hash, email, created_at) VALUES ($1, $2, $3, $4, $5);`,
		user.ID, user.Username, user.PasswordHash, user.Email, user.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrDuplicate
	}
	return err
}

// GetByID fetches an account by id.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetByUsername fetches an account by username.
func (r *UserRepositoryPG) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.get(ctx, `WHERE username = $1`, username)
}

// UpdatePassword replaces an account's password hash.
func (r *UserRepositoryPG) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1;`, id, passwordHash,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepositoryPG) get(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := `SELECT id, username, password_hash, COALESCE(email, ''), created_at FROM users ` + where + `;`
	var user domain.User
	err := r.db.QueryRow(ctx, query, arg).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

var _ domain.UserRepository = (*UserRepositoryPG)(nil)
