package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/adsdash/internal/model"
)

// GoogleStatusMsg is a tea.Msg with the result of a connection check.
type GoogleStatusMsg struct {
	Connection model.GoogleConnection
	Error      error
}

// Checker re-validates the Google connection.
type Checker interface {
	Check(ctx context.Context) (bool, error)
	State() model.GoogleConnection
}

// checkTimeout is the maximum time allowed for a single check.
const checkTimeout = 15 * time.Second

// ConnectionWatcher re-checks the Google connection immediately and then
// on a fixed interval, independent of task polling.
type ConnectionWatcher struct {
	checker  Checker
	interval time.Duration

	resultCh  chan GoogleStatusMsg
	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      gosync.Mutex
	running bool
}

// NewConnectionWatcher creates a watcher checking every interval.
func NewConnectionWatcher(checker Checker, interval time.Duration) *ConnectionWatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ConnectionWatcher{
		checker:   checker,
		interval:  interval,
		resultCh:  make(chan GoogleStatusMsg, 4),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the watch loop and returns a command waiting for the
// first result. Calling Start on a running watcher returns nil.
func (w *ConnectionWatcher) Start() tea.Cmd {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	go w.loop()
	return w.WaitForNextResult()
}

// Stop halts the watch loop.
func (w *ConnectionWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopCh)
	w.running = false
}

// Refresh triggers an immediate check.
func (w *ConnectionWatcher) Refresh() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

func (w *ConnectionWatcher) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.check()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.check()
		case <-w.triggerCh:
			w.check()
		}
	}
}

func (w *ConnectionWatcher) check() {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	_, err := w.checker.Check(ctx)
	msg := GoogleStatusMsg{Connection: w.checker.State(), Error: err}
	select {
	case w.resultCh <- msg:
	default:
		// Drop if the UI is behind; the next tick carries fresh state.
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next check result.
func (w *ConnectionWatcher) WaitForNextResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-w.resultCh:
			return msg
		case <-w.stopCh:
			return nil
		}
	}
}
