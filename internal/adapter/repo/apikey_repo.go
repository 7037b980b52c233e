package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"sakuga/internal/domain"
)

// APIKeyRepositoryPG implements domain.APIKeyRepository.
type APIKeyRepositoryPG struct {
	db DB
}

// NewAPIKeyRepository creates an API key repository backed by PostgreSQL.
func NewAPIKeyRepository(db DB) *APIKeyRepositoryPG {
	return &APIKeyRepositoryPG{db: db}
}

// Get returns the stored key for a provider, or "" when none is stored.
func (r *APIKeyRepositoryPG) Get(ctx context.Context, provider string) (string, error) {
	var key string
	err := r.db.QueryRow(ctx, `SELECT api_key FROM api_keys WHERE provider = $1;`, provider).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return key, nil
}

// Upsert stores or replaces a provider's key.
func (r *APIKeyRepositoryPG) Upsert(ctx context.Context, provider, key string) error {
	query := `
INSERT INTO api_keys (provider, api_key, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (provider) DO UPDATE SET api_key = EXCLUDED.api_key, updated_at = NOW();`
	_, err := r.db.Exec(ctx, query, provider, key)
	return err
}

// Delete removes a provider's stored key.
func (r *APIKeyRepositoryPG) Delete(ctx context.Context, provider string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM api_keys WHERE provider = $1;`, provider)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns every stored key record.
func (r *APIKeyRepositoryPG) List(ctx context.Context) ([]domain.APIKeyRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT provider, api_key, updated_at FROM api_keys ORDER BY provider;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.APIKeyRecord
	for rows.Next() {
		var rec domain.APIKeyRecord
		if err := rows.Scan(&rec.Provider, &rec.Key, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

var _ domain.APIKeyRepository = (*APIKeyRepositoryPG)(nil)
