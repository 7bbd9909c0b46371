package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/adsdash/internal/model"
	"github.com/nhle/adsdash/internal/store"
	"github.com/nhle/adsdash/tests/testutil"
)

func TestRecordTaskUpsert(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordTask(ctx, store.TaskRecord{
		TaskID:      "abc",
		ManagerID:   "123",
		StartDate:   "2024-01-01",
		EndDate:     "2024-01-31",
		ClientCount: 2,
		Status:      model.TaskPending,
	}))
	require.NoError(t, s.RecordTask(ctx, store.TaskRecord{
		TaskID: "abc",
		Status: model.TaskSuccess,
	}))

	rec, err := s.GetTaskByID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, model.TaskSuccess, rec.Status)
	assert.Equal(t, "123", rec.ManagerID)
	assert.Equal(t, 2, rec.ClientCount)
	assert.Equal(t, "2024-01-31", rec.EndDate)
}

func TestGetTaskByIDMissing(t *testing.T) {
	s := testutil.NewTestStore(t)
	_, err := s.GetTaskByID(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetTasksFilter(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	for _, rec := range []store.TaskRecord{
		{TaskID: "t1", ManagerID: "m1", Status: model.TaskSuccess},
		{TaskID: "t2", ManagerID: "m1", Status: model.TaskFailure},
		{TaskID: "t3", ManagerID: "m2", Status: model.TaskSuccess},
	} {
		require.NoError(t, s.RecordTask(ctx, rec))
	}

	m1 := "m1"
	tasks, err := s.GetTasks(ctx, store.TaskFilter{ManagerID: &m1})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	success := model.TaskSuccess
	tasks, err = s.GetTasks(ctx, store.TaskFilter{Status: &success, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	tasks, err = s.GetTasks(ctx, store.TaskFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestSnapshots(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.RecordTask(ctx, store.TaskRecord{TaskID: "t1", ManagerID: "m1"}))
	require.NoError(t, s.RecordTask(ctx, store.TaskRecord{TaskID: "t2", ManagerID: "m1"}))

	base := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	_, err := s.SaveSnapshot(ctx, store.Snapshot{
		TaskID:    "t1",
		ManagerID: "m1",
		Result:    model.TaskResult{ProcessedCount: 1, Data: []model.CustomerData{{CustomerID: "111", Spend: 5}}},
		CreatedAt: base,
	})
	require.NoError(t, err)
	id, err := s.SaveSnapshot(ctx, store.Snapshot{
		TaskID:    "t2",
		ManagerID: "m1",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
		Result:    model.TaskResult{ProcessedCount: 2, Data: []model.CustomerData{{CustomerID: "222", Spend: 9}}},
		CreatedAt: base.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	snap, err := s.LatestSnapshot(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, "t2", snap.TaskID)
	assert.Equal(t, 2, snap.Result.ProcessedCount)
	require.Len(t, snap.Result.Data, 1)
	assert.Equal(t, "222", snap.Result.Data[0].CustomerID)

	_, err = s.LatestSnapshot(ctx, "other")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.PruneSnapshots(ctx, 1))
	snap, err = s.LatestSnapshot(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, id, snap.ID)
}

func TestSnapshotRequiresTask(t *testing.T) {
	s := testutil.NewTestStore(t)
	_, err := s.SaveSnapshot(context.Background(), store.Snapshot{TaskID: "ghost"})
	assert.Error(t, err)
}
