package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/adsdash/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// TaskRecord is the local history entry of one metrics task.
type TaskRecord struct {
	TaskID      string           `db:"task_id"`
	ManagerID   string           `db:"manager_id"`
	StartDate   string           `db:"start_date"`
	EndDate     string           `db:"end_date"`
	ClientCount int              `db:"client_count"`
	Status      model.TaskStatus `db:"status"`
	Message     string           `db:"message"`
	CreatedAt   time.Time        `db:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at"`
}

// Snapshot is a stored task result, kept so the last report can be shown
// before a new fetch completes.
type Snapshot struct {
	ID        string
	TaskID    string
	ManagerID string
	StartDate string
	EndDate   string
	Result    model.TaskResult
	CreatedAt time.Time
}

// TaskFilter controls filtering and pagination for task history queries.
type TaskFilter struct {
	ManagerID *string
	Status    *model.TaskStatus
	Limit     int
	Offset    int
}

// Store defines the persistence interface for the local cache.
type Store interface {
	// === Task history ===

	RecordTask(ctx context.Context, rec TaskRecord) error
	GetTasks(ctx context.Context, filter TaskFilter) ([]TaskRecord, error)
	GetTaskByID(ctx context.Context, taskID string) (*TaskRecord, error)

	// === Result snapshots ===

	SaveSnapshot(ctx context.Context, snap Snapshot) (string, error)
	LatestSnapshot(ctx context.Context, managerID string) (*Snapshot, error)
	PruneSnapshots(ctx context.Context, keep int) error

	Close() error
}
