package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"neuroforge/internal/domain"
)

// GenerationRepositoryPG implements domain.GenerationRepository using PostgreSQL.
type GenerationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewGenerationRepository constructs a new generation repository instance.
func NewGenerationRepository(pool *pgxpool.Pool) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{pool: pool}
}

// Insert appends a history record.
func (r *GenerationRepositoryPG) Insert(ctx context.Context, record *domain.GenerationRecord) error {
	query := `
INSERT INTO generation_tasks (user_id, tool_id, output_url, prompt, cost_credits, api_task_id, status)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`

	_, err := r.pool.Exec(ctx, query,
		record.UserID,
		record.ToolID,
		record.OutputURL,
		record.Prompt,
		record.CostCredits,
		record.APITaskID,
		record.Status,
	)
	return err
}

// ListByUser returns the user's history, most recent first.
func (r *GenerationRepositoryPG) ListByUser(ctx context.Context, userID int64) ([]domain.GenerationRecord, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, tool_id, output_url, prompt, cost_credits, api_task_id, status, created_at
FROM generation_tasks
WHERE user_id = $1
ORDER BY created_at DESC;
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.GenerationRecord
	for rows.Next() {
		var record domain.GenerationRecord
		if err := rows.Scan(&record.ID, &record.UserID, &record.ToolID, &record.OutputURL, &record.Prompt, &record.CostCredits, &record.APITaskID, &record.Status, &record.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
