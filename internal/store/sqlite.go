package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// RecordTask inserts a task or updates its status, keeping the original
// creation time and request parameters.
func (s *SQLiteStore) RecordTask(ctx context.Context, rec TaskRecord) error {
	if rec.TaskID == "" {
		return fmt.Errorf("task id must not be empty")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO fetch_tasks (
			task_id, manager_id, start_date, end_date, client_count,
			status, message, created_at, updated_at
		) VALUES (
			:task_id, :manager_id, :start_date, :end_date, :client_count,
			:status, :message, :created_at, :updated_at
		)
		ON CONFLICT(task_id) DO UPDATE SET
			status     = excluded.status,
			message    = excluded.message,
			updated_at = excluded.updated_at`,
		rec,
	)
	if err != nil {
		return fmt.Errorf("recording task %s: %w", rec.TaskID, err)
	}
	return nil
}

// GetTasks retrieves task history, newest first.
func (s *SQLiteStore) GetTasks(ctx context.Context, opts TaskFilter) ([]TaskRecord, error) {
	var conditions []string
	var args []interface{}

	if opts.ManagerID != nil {
		conditions = append(conditions, "manager_id = ?")
		args = append(args, *opts.ManagerID)
	}
	if opts.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*opts.Status))
	}

	query := "SELECT * FROM fetch_tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	var tasks []TaskRecord
	if err := s.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// GetTaskByID retrieves a single task by its ID.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, taskID string) (*TaskRecord, error) {
	var rec TaskRecord
	err := s.db.GetContext(ctx, &rec, "SELECT * FROM fetch_tasks WHERE task_id = ?", taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", taskID, err)
	}
	return &rec, nil
}

// snapshotRow is the flat database form of a Snapshot.
type snapshotRow struct {
	ID             string    `db:"id"`
	TaskID         string    `db:"task_id"`
	ManagerID      string    `db:"manager_id"`
	StartDate      string    `db:"start_date"`
	EndDate        string    `db:"end_date"`
	ProcessedCount int       `db:"processed_count"`
	Data           string    `db:"data"`
	CreatedAt      time.Time `db:"created_at"`
}

// SaveSnapshot stores a task result and returns the new snapshot id. The
// task must have been recorded first.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap Snapshot) (string, error) {
	if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(snap.Result)
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot data: %w", err)
	}

	row := snapshotRow{
		ID:             snap.ID,
		TaskID:         snap.TaskID,
		ManagerID:      snap.ManagerID,
		StartDate:      snap.StartDate,
		EndDate:        snap.EndDate,
		ProcessedCount: snap.Result.ProcessedCount,
		Data:           string(data),
		CreatedAt:      snap.CreatedAt,
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO result_snapshots (
			id, task_id, manager_id, start_date, end_date,
			processed_count, data, created_at
		) VALUES (
			:id, :task_id, :manager_id, :start_date, :end_date,
			:processed_count, :data, :created_at
		)`,
		row,
	)
	if err != nil {
		return "", fmt.Errorf("saving snapshot for task %s: %w", snap.TaskID, err)
	}
	return snap.ID, nil
}

// LatestSnapshot returns the newest snapshot for managerID.
func (s *SQLiteStore) LatestSnapshot(ctx context.Context, managerID string) (*Snapshot, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row, `
		SELECT * FROM result_snapshots
		WHERE manager_id = ?
		ORDER BY created_at DESC
		LIMIT 1`,
		managerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest snapshot: %w", err)
	}

	snap := &Snapshot{
		ID:        row.ID,
		TaskID:    row.TaskID,
		ManagerID: row.ManagerID,
		StartDate: row.StartDate,
		EndDate:   row.EndDate,
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.Data), &snap.Result); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot %s: %w", row.ID, err)
	}
	return snap, nil
}

// PruneSnapshots deletes all but the keep newest snapshots.
func (s *SQLiteStore) PruneSnapshots(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM result_snapshots
		WHERE id NOT IN (
			SELECT id FROM result_snapshots ORDER BY created_at DESC LIMIT ?
		)`,
		keep,
	)
	if err != nil {
		return fmt.Errorf("pruning snapshots: %w", err)
	}
	return nil
}
