package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"sakuga/internal/domain"
)

// FavoriteRepositoryPG implements domain.FavoriteRepository.
type FavoriteRepositoryPG struct {
	db DB
}

// NewFavoriteRepository creates a favorite repository backed by PostgreSQL.
func NewFavoriteRepository(db DB) *FavoriteRepositoryPG {
	return &FavoriteRepositoryPG{db: db}
}

// Add marks a history entry as a favorite. Adding twice is a no-op;
// favoriting a missing entry returns ErrNotFound.
func (r *FavoriteRepositoryPG) Add(ctx context.Context, historyID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO favorites (id, history_id) VALUES ($1, $2) ON CONFLICT (history_id) DO NOTHING;`,
		uuid.NewString(), historyID,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return domain.ErrNotFound
	}
	return err
}

// Remove unmarks a favorite.
func (r *FavoriteRepositoryPG) Remove(ctx context.Context, historyID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM favorites WHERE history_id = $1;`, historyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns the favorited history entries, most recently favorited
// first.
func (r *FavoriteRepositoryPG) List(ctx context.Context) ([]domain.HistoryEntry, error) {
	query := `
SELECT h.id, h.prompt, h.type, h.provider, h.model, h.aspect_ratio, h.image_url, h.thumb_url, h.cost, h.variant_group, h.collection_id, h.created_at
FROM favorites f
JOIN history h ON h.id = f.history_id
ORDER BY f.created_at DESC;`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// IsFavorite reports whether the history entry is favorited.
func (r *FavoriteRepositoryPG) IsFavorite(ctx context.Context, historyID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM favorites WHERE history_id = $1);`, historyID,
	).Scan(&exists)
	return exists, err
}

var _ domain.FavoriteRepository = (*FavoriteRepositoryPG)(nil)
