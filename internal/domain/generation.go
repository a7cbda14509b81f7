package domain

import "time"

// GenerationStatusDone is the only status this pipeline ever writes: records
// are created after the remote task has already finished.
const GenerationStatusDone = "done"

// GenerationRecord is the persisted, per-user row for one successful
// generation. It is written exactly once and never mutated afterwards.
type GenerationRecord struct {
	ID          int64
	UserID      int64
	ToolID      string
	OutputURL   string
	Prompt      string
	CostCredits int
	APITaskID   string
	Status      string
	CreatedAt   time.Time
}

// ShowcaseEntry is the public, user-agnostic gallery row written alongside a
// GenerationRecord. Persisting it is best-effort.
type ShowcaseEntry struct {
	ID        int64
	ToolID    string
	OutputURL string
	Prompt    string
	CreatedAt time.Time
}
