package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"sakuga/internal/domain"
)

// CollectionRepositoryPG implements domain.CollectionRepository.
type CollectionRepositoryPG struct {
	db DB
}

// NewCollectionRepository creates a collection repository backed by PostgreSQL.
func NewCollectionRepository(db DB) *CollectionRepositoryPG {
	return &CollectionRepositoryPG{db: db}
}

const collectionQuery = `
SELECT c.id, c.name, COALESCE(c.description, ''), COUNT(h.id), c.created_at, c.updated_at
FROM collections c
LEFT JOIN history h ON h.collection_id = c.id
`

// List returns all collections with their item counts, newest first.
func (r *CollectionRepositoryPG) List(ctx context.Context) ([]domain.Collection, error) {
	rows, err := r.db.Query(ctx, collectionQuery+`GROUP BY c.id ORDER BY c.created_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []domain.Collection
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.ItemCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// Get fetches one collection with its item count.
func (r *CollectionRepositoryPG) Get(ctx context.Context, id string) (*domain.Collection, error) {
	var c domain.Collection
	err := r.db.QueryRow(ctx, collectionQuery+`WHERE c.id = $1 GROUP BY c.id;`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.ItemCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Create inserts a collection.
func (r *CollectionRepositoryPG) Create(ctx context.Context, c *domain.Collection) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := r.db.Exec(ctx,
		`INSERT INTO collections (id, name, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $4);`,
		c.ID, c.Name, c.Description, now,
	)
	return err
}

// Update renames a collection.
func (r *CollectionRepositoryPG) Update(ctx context.Context, id, name, description string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE collections SET name = $2, description = $3, updated_at = NOW() WHERE id = $1;`,
		id, name, description,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a collection. Member history rows keep existing with
// their collection cleared by the FK's ON DELETE SET NULL.
func (r *CollectionRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM collections WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.CollectionRepository = (*CollectionRepositoryPG)(nil)
