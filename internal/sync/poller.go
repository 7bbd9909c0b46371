package sync

import (
	"context"
	"errors"
	"log/slog"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/adsdash/internal/api"
	"github.com/nhle/adsdash/internal/dashboard"
	"github.com/nhle/adsdash/internal/model"
	"github.com/nhle/adsdash/internal/store"
)

// TaskStatusMsg is a tea.Msg sent for every observed task status.
type TaskStatusMsg struct {
	TaskID string
	Status model.TaskStatus

	// Result is non-nil only on the update that attached it.
	Result *model.TaskResult

	Message string
	Error   error
}

// TaskDoneMsg is a tea.Msg sent when a poll chain ends for any reason.
type TaskDoneMsg struct {
	Error error

	// Cancelled is true when the chain was stopped through its handle.
	Cancelled bool

	// AuthExpired is true when the chain ended because the session expired.
	AuthExpired bool
}

// Recorder observes task progress, e.g. a cache or metrics.
type Recorder interface {
	TaskObserved(status model.TaskStatus)
}

// recordTimeout bounds a single cache write.
const recordTimeout = 5 * time.Second

// Handle controls one running poll chain.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops the chain. The last observed status is left as it was.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.cancel()
}

// Done is closed when the chain has exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// TaskPoller runs the dashboard's task poll chain in the background and
// forwards its updates to the Bubble Tea runtime.
type TaskPoller struct {
	state    *dashboard.State
	store    store.Store
	recorder Recorder

	resultCh chan tea.Msg
	stopCh   chan struct{}

	mu      gosync.Mutex
	current *Handle
	stopped bool
}

// NewTaskPoller creates a poller for state. st and rec may be nil.
func NewTaskPoller(state *dashboard.State, st store.Store, rec Recorder) *TaskPoller {
	p := &TaskPoller{
		state:    state,
		store:    st,
		recorder: rec,
		resultCh: make(chan tea.Msg, 64),
		stopCh:   make(chan struct{}),
	}
	state.OnStatus(p.onStatus)
	return p
}

// Start submits a new metrics task and polls it. It returns the handle of
// the chain and a command that waits for the first message.
func (p *TaskPoller) Start() (*Handle, tea.Cmd) {
	return p.run(p.state.FetchCustomerData)
}

func (p *TaskPoller) run(fn func(context.Context) error) (*Handle, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	p.mu.Lock()
	p.current = h
	p.mu.Unlock()

	go func() {
		defer close(h.done)
		defer cancel()

		err := fn(ctx)
		msg := TaskDoneMsg{Error: err}
		switch {
		case errors.Is(err, context.Canceled):
			msg = TaskDoneMsg{Cancelled: true}
		case api.IsAuthError(err):
			msg.AuthExpired = true
		}

		p.mu.Lock()
		if p.current == h {
			p.current = nil
		}
		p.mu.Unlock()

		p.send(msg)
	}()

	return h, p.waitForResult()
}

// Running reports whether a chain started by this poller is active.
func (p *TaskPoller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// Cancel stops the active chain, if any.
func (p *TaskPoller) Cancel() {
	p.mu.Lock()
	h := p.current
	p.mu.Unlock()
	h.Cancel()
}

// Stop cancels the active chain and releases waiting commands.
func (p *TaskPoller) Stop() {
	p.Cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.stopCh)
}

// onStatus runs on the polling goroutine.
func (p *TaskPoller) onStatus(u dashboard.TaskUpdate) {
	if p.recorder != nil {
		p.recorder.TaskObserved(u.Status)
	}
	if p.store != nil && u.TaskID != "" {
		p.persist(u)
	}
	p.send(TaskStatusMsg{
		TaskID:  u.TaskID,
		Status:  u.Status,
		Result:  u.Result,
		Message: u.Message,
		Error:   u.Err,
	})
}

func (p *TaskPoller) persist(u dashboard.TaskUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	snap := p.state.Snapshot()
	rec := store.TaskRecord{
		TaskID:      u.TaskID,
		ManagerID:   snap.ManagerID,
		StartDate:   snap.Dates.StartDate,
		EndDate:     snap.Dates.EndDate,
		ClientCount: len(snap.Customers),
		Status:      u.Status,
		Message:     u.Message,
	}
	if err := p.store.RecordTask(ctx, rec); err != nil {
		slog.Warn("caching task status", "task_id", u.TaskID, "err", err)
		return
	}
	if u.Result == nil {
		return
	}
	_, err := p.store.SaveSnapshot(ctx, store.Snapshot{
		TaskID:    u.TaskID,
		ManagerID: rec.ManagerID,
		StartDate: rec.StartDate,
		EndDate:   rec.EndDate,
		Result:    *u.Result,
	})
	if err != nil {
		slog.Warn("caching task result", "task_id", u.TaskID, "err", err)
	}
}

// send delivers msg unless the poller has been stopped.
func (p *TaskPoller) send(msg tea.Msg) {
	select {
	case p.resultCh <- msg:
	case <-p.stopCh:
	}
}

// waitForResult returns a tea.Cmd that waits for the next message from
// the result channel.
func (p *TaskPoller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-p.resultCh:
			return msg
		case <-p.stopCh:
			return nil
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poller
// message. Call it after handling each TaskStatusMsg; stop after a
// TaskDoneMsg.
func (p *TaskPoller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
