package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/adsdash/internal/model"
)

type fakeBackend struct {
	mu        sync.Mutex
	managers  []model.Manager
	customers []model.Customer
	labels    []model.Label

	submitted []model.FetchRequest
	submit    *model.Task
	submitErr error

	// statuses are returned by successive GetTask calls; the last repeats.
	statuses []*model.Task
	taskErr  error
	polls    int
}

func (f *fakeBackend) AccessibleCustomers(context.Context) ([]model.Manager, error) {
	return f.managers, nil
}

func (f *fakeBackend) ListCustomers(context.Context) ([]model.Customer, error) {
	return f.customers, nil
}

func (f *fakeBackend) ListLabels(context.Context) ([]model.Label, error) {
	return f.labels, nil
}

func (f *fakeBackend) SubmitFetch(_ context.Context, req model.FetchRequest) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.submit, nil
}

func (f *fakeBackend) GetTask(_ context.Context, id string) (*model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.taskErr != nil {
		return nil, f.taskErr
	}
	i := f.polls - 1
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	t := *f.statuses[i]
	t.TaskID = id
	return &t, nil
}

func (f *fakeBackend) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func exampleResult() *model.TaskResult {
	return &model.TaskResult{
		Data: []model.CustomerData{
			{CustomerID: "111", BusinessName: "Acme", Spend: 120.5, Clicks: 40},
			{CustomerID: "222", BusinessName: "Globex", Spend: 80, Clicks: 10},
		},
		ProcessedCount: 2,
	}
}

func readyState(t *testing.T, b *fakeBackend) *State {
	t.Helper()
	b.customers = []model.Customer{{ID: 1, GACustomerID: 111}, {ID: 2, GACustomerID: 222}}
	s := NewState(b, time.Millisecond)
	s.SetSelectedManager("123")
	require.NoError(t, s.SetDateRange("2024-01-01", "2024-01-31"))
	_, err := s.FetchCustomers(context.Background())
	require.NoError(t, err)
	return s
}

func TestFetchCustomerDataSuccess(t *testing.T) {
	b := &fakeBackend{
		submit: &model.Task{TaskID: "abc", Status: model.TaskPending},
		statuses: []*model.Task{
			{Status: model.TaskPending},
			{Status: model.TaskStarted},
			{Status: model.TaskSuccess, Result: exampleResult()},
		},
	}
	s := readyState(t, b)

	var updates []TaskUpdate
	s.OnStatus(func(u TaskUpdate) { updates = append(updates, u) })

	require.NoError(t, s.FetchCustomerData(context.Background()))

	require.Len(t, b.submitted, 1)
	assert.Equal(t, model.FetchRequest{
		ManagerID: "123",
		ClientIDs: []string{"111", "222"},
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	}, b.submitted[0])

	assert.Equal(t, 3, b.pollCount())
	snap := s.Snapshot()
	assert.Equal(t, "abc", snap.TaskID)
	assert.Equal(t, model.TaskSuccess, snap.Status)
	require.NotNil(t, snap.Result)
	assert.Len(t, snap.Result.Data, 2)
	assert.False(t, snap.Polling)

	require.NotEmpty(t, updates)
	assert.Equal(t, model.TaskPending, updates[0].Status)
	withResult := 0
	for _, u := range updates {
		if u.Result != nil {
			withResult++
		}
	}
	assert.Equal(t, 1, withResult)
}

func TestResultAttachedOnce(t *testing.T) {
	b := &fakeBackend{
		submit:   &model.Task{TaskID: "abc", Status: model.TaskPending},
		statuses: []*model.Task{{Status: model.TaskSuccess, Result: exampleResult()}},
	}
	s := readyState(t, b)
	require.NoError(t, s.FetchCustomerData(context.Background()))

	var updates []TaskUpdate
	s.OnStatus(func(u TaskUpdate) { updates = append(updates, u) })

	terminal, err := s.CheckTaskStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, terminal)
	require.Len(t, updates, 1)
	assert.Nil(t, updates[0].Result)
	assert.NotNil(t, s.Snapshot().Result)
}

func TestTerminalFailuresStopWithoutResult(t *testing.T) {
	for _, status := range []model.TaskStatus{model.TaskFailure, model.TaskRevoked} {
		t.Run(string(status), func(t *testing.T) {
			b := &fakeBackend{
				submit: &model.Task{TaskID: "abc", Status: model.TaskPending},
				statuses: []*model.Task{
					{Status: model.TaskRetry},
					{Status: status},
				},
			}
			s := readyState(t, b)
			require.NoError(t, s.FetchCustomerData(context.Background()))
			assert.Equal(t, 2, b.pollCount())
			snap := s.Snapshot()
			assert.Equal(t, status, snap.Status)
			assert.Nil(t, snap.Result)
		})
	}
}

func TestMissingParameters(t *testing.T) {
	b := &fakeBackend{}
	s := NewState(b, time.Millisecond)
	assert.ErrorIs(t, s.FetchCustomerData(context.Background()), ErrMissingParameters)

	s.SetSelectedManager("123")
	require.NoError(t, s.SetDateRange("2024-01-01", "2024-01-31"))
	assert.ErrorIs(t, s.FetchCustomerData(context.Background()), ErrMissingParameters)
	assert.Empty(t, b.submitted)
}

func TestSnapshotResolvesLabelNames(t *testing.T) {
	b := &fakeBackend{
		customers: []model.Customer{{ID: 1, GACustomerID: 111, GACustomerLabelName: "Retail"}},
		labels:    []model.Label{{ID: 4, Label: "Retail"}},
	}
	s := NewState(b, time.Millisecond)
	_, err := s.FetchCustomers(context.Background())
	require.NoError(t, err)
	_, err = s.FetchLabels(context.Background())
	require.NoError(t, err)

	snap := s.Snapshot()
	require.NotNil(t, snap.Customers[0].GACustomerLabel)
	assert.Equal(t, int64(4), *snap.Customers[0].GACustomerLabel)

	f := NewFilter(10)
	f.LabelID = 4
	assert.Equal(t, 1, f.Apply(snap.Customers).Total)
}

func TestPollTaskChecksCurrentTask(t *testing.T) {
	b := &fakeBackend{statuses: []*model.Task{{Status: model.TaskStarted}, {Status: model.TaskSuccess, Result: exampleResult()}}}
	s := NewState(b, time.Millisecond)
	assert.ErrorIs(t, s.PollTask(context.Background()), ErrNoTask)

	require.True(t, s.RestoreResult("abc", &model.TaskResult{}))
	require.NoError(t, s.PollTask(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, model.TaskSuccess, snap.Status)
	assert.False(t, snap.Polling)
	assert.Equal(t, 2, b.pollCount())
}

func TestCheckWithoutTask(t *testing.T) {
	s := NewState(&fakeBackend{}, time.Millisecond)
	_, err := s.CheckTaskStatus(context.Background())
	assert.ErrorIs(t, err, ErrNoTask)
}

func TestSubmitErrorSetsFailure(t *testing.T) {
	b := &fakeBackend{submitErr: errors.New("boom")}
	s := readyState(t, b)
	err := s.FetchCustomerData(context.Background())
	require.Error(t, err)
	snap := s.Snapshot()
	assert.Equal(t, model.TaskFailure, snap.Status)
	assert.Empty(t, snap.TaskID)
	assert.False(t, snap.Polling)
}

func TestPollTransportErrorSetsFailure(t *testing.T) {
	b := &fakeBackend{
		submit:  &model.Task{TaskID: "abc", Status: model.TaskPending},
		taskErr: errors.New("connection reset"),
	}
	s := readyState(t, b)

	var last TaskUpdate
	s.OnStatus(func(u TaskUpdate) { last = u })

	require.Error(t, s.FetchCustomerData(context.Background()))
	assert.Equal(t, 1, b.pollCount())
	assert.Equal(t, model.TaskFailure, s.Snapshot().Status)
	assert.Error(t, last.Err)
}

func TestCancelLeavesStatus(t *testing.T) {
	b := &fakeBackend{
		submit:   &model.Task{TaskID: "abc", Status: model.TaskPending},
		statuses: []*model.Task{{Status: model.TaskStarted}},
	}
	s := readyState(t, b)
	s.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.FetchCustomerData(ctx) }()

	require.Eventually(t, func() bool { return b.pollCount() >= 2 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	snap := s.Snapshot()
	assert.Equal(t, model.TaskStarted, snap.Status)
	assert.False(t, snap.Polling)
}

func TestSecondFetchWhilePolling(t *testing.T) {
	b := &fakeBackend{
		submit:   &model.Task{TaskID: "abc", Status: model.TaskPending},
		statuses: []*model.Task{{Status: model.TaskStarted}},
	}
	s := readyState(t, b)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.FetchCustomerData(ctx) }()

	require.Eventually(t, func() bool { return s.Snapshot().Polling }, time.Second, time.Millisecond)
	assert.ErrorIs(t, s.FetchCustomerData(context.Background()), ErrTaskInProgress)
	cancel()
	<-done
	assert.Len(t, b.submitted, 1)
}

func TestSetDateRangeValidation(t *testing.T) {
	s := NewState(&fakeBackend{}, 0)
	assert.Error(t, s.SetDateRange("2024-02-01", "2024-01-01"))
	assert.Error(t, s.SetDateRange("yesterday", "2024-01-01"))
	assert.NoError(t, s.SetDateRange("2024-01-01", "2024-01-01"))
}

func TestFetchCustomersDedupes(t *testing.T) {
	b := &fakeBackend{customers: []model.Customer{
		{ID: 1, GACustomerID: 111, GACustomerName: "first"},
		{ID: 2, GACustomerID: 111, GACustomerName: "second"},
		{ID: 3, GACustomerID: 333},
	}}
	s := NewState(b, 0)
	got, err := s.FetchCustomers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].GACustomerName)
}

func TestFetchManagersSelectsOnlyOne(t *testing.T) {
	s := NewState(&fakeBackend{managers: []model.Manager{{ID: "123", Name: "Main"}}}, 0)
	_, err := s.FetchManagers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "123", s.Snapshot().ManagerID)
}

func TestAddLabelIgnoresDuplicates(t *testing.T) {
	s := NewState(&fakeBackend{}, 0)
	s.AddLabel(model.Label{ID: 1, Label: "VIP"})
	s.AddLabel(model.Label{ID: 1, Label: "VIP"})
	assert.Len(t, s.Snapshot().Labels, 1)
}

func TestRestoreResult(t *testing.T) {
	s := NewState(&fakeBackend{}, time.Millisecond)

	assert.False(t, s.RestoreResult("", exampleResult()))
	require.True(t, s.RestoreResult("old", exampleResult()))

	snap := s.Snapshot()
	assert.Equal(t, "old", snap.TaskID)
	assert.Equal(t, model.TaskSuccess, snap.Status)
	require.NotNil(t, snap.Result)

	assert.False(t, s.RestoreResult("older", exampleResult()), "an existing task is not replaced")
}
