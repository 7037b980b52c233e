package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"sakuga/internal/domain"
)

// HistoryRepositoryPG implements domain.HistoryRepository.
type HistoryRepositoryPG struct {
	db DB
}

// NewHistoryRepository creates a history repository backed by PostgreSQL.
func NewHistoryRepository(db DB) *HistoryRepositoryPG {
	return &HistoryRepositoryPG{db: db}
}

const historyColumns = `id, prompt, type, provider, model, aspect_ratio, image_url, thumb_url, cost, variant_group, collection_id, created_at`

// Add inserts a history entry.
func (r *HistoryRepositoryPG) Add(ctx context.Context, entry *domain.HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query := `
INSERT INTO history (id, prompt, type, provider, model, aspect_ratio, image_url, thumb_url, cost, variant_group, collection_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
`
	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.Prompt,
		entry.Type,
		entry.Provider,
		entry.Model,
		entry.AspectRatio,
		entry.ImageURL,
		entry.ThumbURL,
		entry.Cost,
		entry.VariantGroup,
		entry.CollectionID,
		entry.CreatedAt,
	)
	return err
}

// List returns a page of history entries, newest first, plus the total
// row count for the filter.
func (r *HistoryRepositoryPG) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, int, error) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Type != "" {
		conds = append(conds, "type = "+arg(filter.Type))
	}
	if filter.Provider != "" {
		conds = append(conds, "provider = "+arg(filter.Provider))
	}
	if filter.Search != "" {
		conds = append(conds, "prompt ILIKE "+arg("%"+filter.Search+"%"))
	}
	if filter.CollectionID != "" {
		conds = append(conds, "collection_id = "+arg(filter.CollectionID))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM history`+where+`;`, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	query := `SELECT ` + historyColumns + ` FROM history` + where +
		` ORDER BY created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg((page-1)*limit) + `;`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		entry, err := scanHistory(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, *entry)
	}
	return entries, total, rows.Err()
}

// Get fetches one history entry.
func (r *HistoryRepositoryPG) Get(ctx context.Context, id string) (*domain.HistoryEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM history WHERE id = $1;`
	entry, err := scanHistory(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

// Delete removes a history entry.
func (r *HistoryRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM history WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetCollection assigns or clears an entry's collection.
func (r *HistoryRepositoryPG) SetCollection(ctx context.Context, id string, collectionID *string) error {
	tag, err := r.db.Exec(ctx, `UPDATE history SET collection_id = $2 WHERE id = $1;`, id, collectionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Stats aggregates usage across the whole history table. Daily costs
// cover the last 30 days.
func (r *HistoryRepositoryPG) Stats(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{}
	if err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(cost), 0) FROM history;`,
	).Scan(&stats.TotalGenerations, &stats.TotalCost); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `
SELECT provider, COUNT(*), COALESCE(SUM(cost), 0)
FROM history
WHERE provider IS NOT NULL AND provider <> ''
GROUP BY provider
ORDER BY COUNT(*) DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s domain.ProviderStat
		if err := rows.Scan(&s.Provider, &s.Count, &s.Cost); err != nil {
			return nil, err
		}
		stats.ByProvider = append(stats.ByProvider, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	typeRows, err := r.db.Query(ctx, `
SELECT type, COUNT(*)
FROM history
GROUP BY type
ORDER BY COUNT(*) DESC;`)
	if err != nil {
		return nil, err
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var s domain.TypeStat
		if err := typeRows.Scan(&s.Type, &s.Count); err != nil {
			return nil, err
		}
		stats.ByType = append(stats.ByType, s)
	}
	if err := typeRows.Err(); err != nil {
		return nil, err
	}

	dayRows, err := r.db.Query(ctx, `
SELECT TO_CHAR(created_at, 'YYYY-MM-DD') AS day, COALESCE(SUM(cost), 0), COUNT(*)
FROM history
WHERE created_at >= NOW() - INTERVAL '30 days'
GROUP BY day
ORDER BY day;`)
	if err != nil {
		return nil, err
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var d domain.DailyCost
		if err := dayRows.Scan(&d.Date, &d.Cost, &d.Count); err != nil {
			return nil, err
		}
		stats.RecentCosts = append(stats.RecentCosts, d)
	}
	return stats, dayRows.Err()
}

func scanHistory(row pgx.Row) (*domain.HistoryEntry, error) {
	var entry domain.HistoryEntry
	if err := row.Scan(
		&entry.ID,
		&entry.Prompt,
		&entry.Type,
		&entry.Provider,
		&entry.Model,
		&entry.AspectRatio,
		&entry.ImageURL,
		&entry.ThumbURL,
		&entry.Cost,
		&entry.VariantGroup,
		&entry.CollectionID,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}

var _ domain.HistoryRepository = (*HistoryRepositoryPG)(nil)
