package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	humanize "github.com/dustin/go-humanize"

	"github.com/nhle/adsdash/internal/api"
	"github.com/nhle/adsdash/internal/dashboard"
	"github.com/nhle/adsdash/internal/export"
	"github.com/nhle/adsdash/internal/store"
	"github.com/nhle/adsdash/internal/ui/command"
)

const actionTimeout = 30 * time.Second

type googleConnectMsg struct{ err error }

type oauthResultMsg struct{ err error }

type snapshotRestoredMsg struct {
	snap store.Snapshot
	age  string
}

type exportDoneMsg struct {
	path string
	err  error
}

type historyMsg struct {
	text string
	err  error
}

// errorText maps an error to the toast shown in the status bar.
func errorText(err error) string {
	switch {
	case errors.Is(err, dashboard.ErrMissingParameters):
		return "Select an account and a date range, and load customers first"
	case errors.Is(err, dashboard.ErrTaskInProgress):
		return "A fetch is already running"
	default:
		return api.Message(err)
	}
}

// startFetch submits a metrics task unless one is being polled.
func (m Model) startFetch() tea.Cmd {
	if m.deps.Poller.Running() {
		return showToast("A fetch is already running (x to stop)", false)
	}
	_, wait := m.deps.Poller.Start()
	return wait
}

// connectGoogle asks the backend for a consent URL and opens it.
func (m Model) connectGoogle() tea.Cmd {
	if m.deps.Google == nil {
		return nil
	}
	if m.google.IsConnected {
		return showToast("Google account already connected", false)
	}
	c := m.deps.Google
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		_, err := c.Connect(ctx)
		return googleConnectMsg{err: err}
	}
}

// waitForCallback waits for the next loopback OAuth callback.
func (m Model) waitForCallback() tea.Cmd {
	ch := m.deps.Callbacks
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		err, ok := <-ch
		if !ok {
			return nil
		}
		return oauthResultMsg{err: err}
	}
}

// restoreSnapshot loads the newest cached result for managerID when it
// covers the selected date range.
func (m Model) restoreSnapshot(managerID string) tea.Cmd {
	cache := m.deps.Cache
	if cache == nil || managerID == "" {
		return nil
	}
	dates := m.deps.State.Snapshot().Dates
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		snap, err := cache.LatestSnapshot(ctx, managerID)
		if err != nil {
			return nil
		}
		if snap.StartDate != dates.StartDate || snap.EndDate != dates.EndDate {
			return nil
		}
		return snapshotRestoredMsg{snap: *snap, age: humanize.Time(snap.CreatedAt)}
	}
}

// executeCommand handles a command from the command prompt.
func (m *Model) executeCommand(c command.Command) tea.Cmd {
	switch c.Name {
	case "refresh":
		return m.dashboard.Reload()
	case "fetch":
		return m.startFetch()
	case "export csv", "export json":
		return m.exportReport(strings.TrimPrefix(c.Name, "export "), c.Arg(0))
	case "connect google":
		return m.connectGoogle()
	case "sidebar":
		m.toggleSidebar(false)
		return nil
	case "history":
		return m.lastTask()
	case "logout":
		m.deps.Poller.Cancel()
		if err := m.deps.Auth.Logout(); err != nil {
			return showToast(err.Error(), true)
		}
		return m.showLogin("Logged out")
	case "quit":
		m.stop()
		return tea.Quit
	case "":
		return nil
	default:
		return showToast(fmt.Sprintf("Unknown command: %s", c.Name), true)
	}
}

// exportReport writes the filtered report in format ("csv" or "json").
func (m Model) exportReport(format, path string) tea.Cmd {
	rows := m.dashboard.Rows()
	if len(rows) == 0 {
		return showToast("Nothing to export", true)
	}
	if path == "" {
		path = fmt.Sprintf("adsdash-%s.%s", time.Now().Format("20060102-150405"), format)
	}

	snap := m.dashboard.Snapshot()
	meta := export.Meta{
		ManagerID: snap.ManagerID,
		StartDate: snap.Dates.StartDate,
		EndDate:   snap.Dates.EndDate,
		TaskID:    snap.TaskID,
	}
	return func() tea.Msg {
		var err error
		if format == "json" {
			err = export.ToJSON(rows, meta, path)
		} else {
			err = export.ToCSV(rows, path)
		}
		return exportDoneMsg{path: path, err: err}
	}
}

// lastTask summarises the newest cached task for the selected account.
func (m Model) lastTask() tea.Cmd {
	cache := m.deps.Cache
	if cache == nil {
		return nil
	}
	managerID := m.deps.State.Snapshot().ManagerID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		filter := store.TaskFilter{Limit: 1}
		if managerID != "" {
			filter.ManagerID = &managerID
		}
		tasks, err := cache.GetTasks(ctx, filter)
		if err != nil {
			return historyMsg{err: err}
		}
		if len(tasks) == 0 {
			return historyMsg{text: "No tasks recorded yet"}
		}
		t := tasks[0]
		return historyMsg{text: fmt.Sprintf("Last task %s: %s for %s..%s, %s",
			shortTaskID(t.TaskID), t.Status, t.StartDate, t.EndDate, humanize.Time(t.UpdatedAt))}
	}
}

func shortTaskID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
