package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"neuroforge/internal/domain"
)

// ShowcaseRepositoryPG implements domain.ShowcaseRepository using PostgreSQL.
type ShowcaseRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewShowcaseRepository constructs a new showcase repository instance.
func NewShowcaseRepository(pool *pgxpool.Pool) *ShowcaseRepositoryPG {
	return &ShowcaseRepositoryPG{pool: pool}
}

// Insert appends a gallery entry.
func (r *ShowcaseRepositoryPG) Insert(ctx context.Context, entry *domain.ShowcaseEntry) error {
	query := `
INSERT INTO showcase (tool_id, output_url, prompt)
VALUES ($1, $2, $3);
`

	_, err := r.pool.Exec(ctx, query, entry.ToolID, entry.OutputURL, entry.Prompt)
	return err
}

// Latest returns the newest gallery entries, newest first.
func (r *ShowcaseRepositoryPG) Latest(ctx context.Context, limit int) ([]domain.ShowcaseEntry, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, tool_id, output_url, prompt, created_at
FROM showcase
ORDER BY created_at DESC
LIMIT $1;
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ShowcaseEntry
	for rows.Next() {
		var entry domain.ShowcaseEntry
		if err := rows.Scan(&entry.ID, &entry.ToolID, &entry.OutputURL, &entry.Prompt, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
