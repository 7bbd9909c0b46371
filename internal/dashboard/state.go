// Package dashboard holds the customer dashboard state and drives the
// asynchronous metrics task from submission to a terminal status.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nhle/adsdash/internal/model"
)

var (
	// ErrMissingParameters is returned when a fetch lacks a manager, a date
	// range or customers.
	ErrMissingParameters = errors.New("missing required parameters for fetching customer data")

	// ErrNoTask is returned when a status check has no task to check.
	ErrNoTask = errors.New("no task ID available to check status")

	// ErrTaskInProgress is returned when a fetch is started while another
	// poll chain is still running.
	ErrTaskInProgress = errors.New("a data fetch is already in progress")
)

// Backend is the subset of the API the dashboard needs.
type Backend interface {
	AccessibleCustomers(ctx context.Context) ([]model.Manager, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	ListLabels(ctx context.Context) ([]model.Label, error)
	SubmitFetch(ctx context.Context, req model.FetchRequest) (*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
}

// TaskUpdate is published on every observed status change.
type TaskUpdate struct {
	TaskID string
	Status model.TaskStatus

	// Result is set only on the single update that attaches it.
	Result *model.TaskResult

	Message string
	Err     error
}

// State is the dashboard's application state. All methods are safe for
// concurrent use.
type State struct {
	backend  Backend
	interval time.Duration

	mu        sync.Mutex
	managers  []model.Manager
	managerID string
	dates     model.DateRange
	customers []model.Customer
	labels    []model.Label

	taskID       string
	status       model.TaskStatus
	message      string
	result       *model.TaskResult
	resultTaskID string
	polling      bool

	listeners []func(TaskUpdate)
}

// NewState creates dashboard state polling every interval.
func NewState(backend Backend, interval time.Duration) *State {
	if interval <= 0 {
		interval = time.Second
	}
	return &State{backend: backend, interval: interval}
}

// OnStatus registers fn to receive task updates. fn runs on the polling
// goroutine and must not block.
func (s *State) OnStatus(fn func(TaskUpdate)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot is a read-only copy of the state for rendering.
type Snapshot struct {
	Managers  []model.Manager
	ManagerID string
	Dates     model.DateRange
	Customers []model.Customer
	Labels    []model.Label

	TaskID  string
	Status  model.TaskStatus
	Message string
	Result  *model.TaskResult
	Polling bool
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Managers:  append([]model.Manager(nil), s.managers...),
		ManagerID: s.managerID,
		Dates:     s.dates,
		Customers: append([]model.Customer(nil), s.customers...),
		Labels:    append([]model.Label(nil), s.labels...),
		TaskID:    s.taskID,
		Status:    s.status,
		Message:   s.message,
		Result:    s.result,
		Polling:   s.polling,
	}
	model.ResolveLabelNames(snap.Customers, snap.Labels)
	return snap
}

// FetchManagers loads the accessible manager accounts.
func (s *State) FetchManagers(ctx context.Context) ([]model.Manager, error) {
	managers, err := s.backend.AccessibleCustomers(ctx)
	if err != nil {
		slog.Error("failed to fetch managers", "err", err)
		return nil, err
	}
	s.mu.Lock()
	s.managers = managers
	if s.managerID == "" && len(managers) == 1 {
		s.managerID = managers[0].ID
	}
	s.mu.Unlock()
	return managers, nil
}

// SetSelectedManager selects the manager account used for fetches.
func (s *State) SetSelectedManager(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.managerID = id
}

// SetDateRange sets the inclusive reporting window. Both dates must be
// YYYY-MM-DD and end must not precede start.
func (s *State) SetDateRange(start, end string) error {
	from, err := time.Parse(model.DateLayout, start)
	if err != nil {
		return fmt.Errorf("invalid start date %q", start)
	}
	to, err := time.Parse(model.DateLayout, end)
	if err != nil {
		return fmt.Errorf("invalid end date %q", end)
	}
	if to.Before(from) {
		return fmt.Errorf("end date must not be before start date")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates = model.DateRange{StartDate: start, EndDate: end}
	return nil
}

// FetchCustomers reloads the customer list. Duplicate external ids keep
// their first occurrence.
func (s *State) FetchCustomers(ctx context.Context) ([]model.Customer, error) {
	customers, err := s.backend.ListCustomers(ctx)
	if err != nil {
		slog.Error("failed to fetch customers", "err", err)
		return nil, err
	}
	customers = dedupe(customers)
	s.mu.Lock()
	s.customers = customers
	s.mu.Unlock()
	return customers, nil
}

// FetchLabels reloads the label list.
func (s *State) FetchLabels(ctx context.Context) ([]model.Label, error) {
	labels, err := s.backend.ListLabels(ctx)
	if err != nil {
		slog.Error("failed to fetch labels", "err", err)
		return nil, err
	}
	s.mu.Lock()
	s.labels = labels
	s.mu.Unlock()
	return labels, nil
}

// AddLabel appends a newly created label to the cached list.
func (s *State) AddLabel(l model.Label) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.labels {
		if existing.ID == l.ID {
			return
		}
	}
	s.labels = append(s.labels, l)
}

func dedupe(customers []model.Customer) []model.Customer {
	seen := make(map[int64]bool, len(customers))
	out := customers[:0:0]
	for _, c := range customers {
		if seen[c.GACustomerID] {
			slog.Warn("duplicate customer id in list", "ga_customer_id", c.GACustomerID)
			continue
		}
		seen[c.GACustomerID] = true
		out = append(out, c)
	}
	return out
}

// FetchCustomerData submits a metrics task for the selected manager, date
// range and customers, then polls it until it ends or ctx is cancelled.
func (s *State) FetchCustomerData(ctx context.Context) error {
	req, err := s.fetchRequest()
	if err != nil {
		return err
	}
	if err := s.beginPoll(); err != nil {
		return err
	}
	defer s.endPoll()

	task, err := s.backend.SubmitFetch(ctx, req)
	if err != nil {
		if ctx.Err() == nil {
			s.fail("", err)
		}
		slog.Error("failed to fetch customer data", "err", err)
		return err
	}

	status := task.Status
	if status == "" {
		status = model.TaskPending
	}
	s.mu.Lock()
	s.taskID = task.TaskID
	s.status = status
	s.message = task.Message
	s.result = nil
	s.resultTaskID = ""
	s.mu.Unlock()
	s.publish(TaskUpdate{TaskID: task.TaskID, Status: status, Message: task.Message})

	slog.Info("metrics task submitted", "task_id", task.TaskID, "clients", len(req.ClientIDs))
	return s.pollLoop(ctx)
}

// PollTask polls the current task until it ends or ctx is cancelled.
func (s *State) PollTask(ctx context.Context) error {
	if err := s.beginPoll(); err != nil {
		return err
	}
	defer s.endPoll()
	return s.pollLoop(ctx)
}

// pollLoop checks immediately, then once per interval. The next check is
// scheduled only after the previous response arrived.
func (s *State) pollLoop(ctx context.Context) error {
	for {
		terminal, err := s.CheckTaskStatus(ctx)
		if err != nil || terminal {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.interval):
		}
	}
}

// CheckTaskStatus fetches the current task once. It reports whether the
// task has reached a terminal status. The result of a successful task is
// attached once.
func (s *State) CheckTaskStatus(ctx context.Context) (bool, error) {
	s.mu.Lock()
	id := s.taskID
	s.mu.Unlock()
	if id == "" {
		return false, ErrNoTask
	}

	task, err := s.backend.GetTask(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		s.fail(id, err)
		slog.Error("failed to check task status", "task_id", id, "err", err)
		return true, err
	}

	update := TaskUpdate{TaskID: id, Status: task.Status, Message: task.Message}

	s.mu.Lock()
	if s.taskID != id {
		// A newer task replaced this one while the request was in flight.
		s.mu.Unlock()
		return true, nil
	}
	s.status = task.Status
	s.message = task.Message
	if task.Status == model.TaskSuccess && task.Result != nil && s.resultTaskID != id {
		s.result = task.Result
		s.resultTaskID = id
		update.Result = task.Result
	}
	s.mu.Unlock()

	s.publish(update)
	if task.Status.IsTerminal() {
		slog.Info("metrics task finished", "task_id", id, "status", task.Status)
	}
	return task.Status.IsTerminal(), nil
}

// RestoreResult shows a cached result of an earlier task. It does nothing
// while a task is active or when a task was already submitted this session.
func (s *State) RestoreResult(taskID string, result *model.TaskResult) bool {
	if taskID == "" || result == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.polling || s.taskID != "" {
		return false
	}
	s.taskID = taskID
	s.status = model.TaskSuccess
	s.message = ""
	s.result = result
	s.resultTaskID = taskID
	return true
}

func (s *State) fetchRequest() (model.FetchRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.managerID == "" || s.dates.StartDate == "" || s.dates.EndDate == "" || len(s.customers) == 0 {
		return model.FetchRequest{}, ErrMissingParameters
	}
	ids := make([]string, 0, len(s.customers))
	for _, c := range s.customers {
		ids = append(ids, c.ExternalID())
	}
	return model.FetchRequest{
		ManagerID: s.managerID,
		ClientIDs: ids,
		StartDate: s.dates.StartDate,
		EndDate:   s.dates.EndDate,
	}, nil
}

func (s *State) beginPoll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.polling {
		return ErrTaskInProgress
	}
	s.polling = true
	return nil
}

func (s *State) endPoll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polling = false
}

// fail marks task id as failed. An empty id is a failed submission, which
// also drops the previous task and its result.
func (s *State) fail(id string, err error) {
	s.mu.Lock()
	if id == "" {
		s.taskID = ""
		s.result = nil
		s.resultTaskID = ""
	} else if s.taskID != id {
		s.mu.Unlock()
		return
	}
	s.status = model.TaskFailure
	s.message = err.Error()
	taskID := s.taskID
	s.mu.Unlock()
	s.publish(TaskUpdate{TaskID: taskID, Status: model.TaskFailure, Err: err})
}

func (s *State) publish(u TaskUpdate) {
	s.mu.Lock()
	listeners := append([]func(TaskUpdate){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(u)
	}
}
