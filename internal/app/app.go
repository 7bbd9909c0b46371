package app

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/adsdash/internal/auth"
	"github.com/nhle/adsdash/internal/dashboard"
	"github.com/nhle/adsdash/internal/google"
	"github.com/nhle/adsdash/internal/keys"
	"github.com/nhle/adsdash/internal/model"
	"github.com/nhle/adsdash/internal/session"
	"github.com/nhle/adsdash/internal/store"
	appsync "github.com/nhle/adsdash/internal/sync"
	"github.com/nhle/adsdash/internal/theme"
	"github.com/nhle/adsdash/internal/ui"
	"github.com/nhle/adsdash/internal/ui/analytics"
	"github.com/nhle/adsdash/internal/ui/command"
	"github.com/nhle/adsdash/internal/ui/customerform"
	"github.com/nhle/adsdash/internal/ui/customers"
	"github.com/nhle/adsdash/internal/ui/filter"
	helpview "github.com/nhle/adsdash/internal/ui/help"
	"github.com/nhle/adsdash/internal/ui/labelmgr"
	"github.com/nhle/adsdash/internal/ui/login"
)

const (
	appTitle      = "Ads Dashboard"
	toastDuration = 4 * time.Second
	expiredNotice = "Session expired, please log in again"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewDashboard
	ViewAnalytics
	ViewLabels
	ViewCustomerForm
	ViewFilter
	ViewHelp
	ViewCommand
)

var sidebarItems = []ui.SidebarItem{
	{Key: "1", Title: "Dashboard", Icon: "▦"},
	{Key: "2", Title: "Analytics", Icon: "▤"},
	{Key: "3", Title: "Labels", Icon: "●"},
}

// Backend is the part of the REST API the views call directly.
type Backend interface {
	customerform.Backend
	labelmgr.Backend
}

// Deps are the long-lived services the root model drives.
type Deps struct {
	Config   *model.AppConfig
	Sessions *session.Store
	Auth     *auth.Store
	Backend  Backend
	Google   *google.Connector
	State    *dashboard.State
	Poller   *appsync.TaskPoller
	Watcher  *appsync.ConnectionWatcher

	// Cache and Callbacks are optional.
	Cache     store.Store
	Callbacks <-chan error
}

// SessionExpiredMsg is sent by the API client hook when a token refresh
// failed and the session was wiped.
type SessionExpiredMsg struct {
	Err error
}

type startMsg struct{}

type toastMsg struct {
	text  string
	isErr bool
}

type toastExpiredMsg struct{ seq int }

// Model is the root Bubble Tea model that manages view routing,
// layout, and the long-lived stores.
type Model struct {
	deps Deps
	keys *keys.KeyMap

	currentView  ViewState
	previousView ViewState
	layout       ui.Layout

	loginView    login.Model
	dashboard    customers.Model
	analytics    analytics.Model
	labelView    labelmgr.Model
	customerForm customerform.Model
	filterView   filter.Model
	helpView     helpview.Model
	commandView  command.Model

	google   model.GoogleConnection
	toast    string
	toastErr bool
	toastSeq int
	ready    bool
}

// New creates the root model over deps.
func New(deps Deps) Model {
	k := keys.DefaultKeyMap()

	pageSize := dashboard.PageSizes[0]
	if deps.Config != nil && deps.Config.Display.PageSize > 0 {
		pageSize = deps.Config.Display.PageSize
	}

	m := Model{
		deps:         deps,
		keys:         k,
		currentView:  ViewLogin,
		layout:       ui.NewLayout(80, 24),
		loginView:    login.New(deps.Auth, 80, 24),
		dashboard:    customers.New(deps.State, k, pageSize, 80, 24),
		analytics:    analytics.New(k, 80, 24),
		labelView:    labelmgr.New(deps.Backend, k, 80, 24),
		customerForm: customerform.New(deps.Backend, 80, 24),
		filterView:   filter.New(80, 24),
		helpView:     helpview.New(k, 80, 24),
		commandView:  command.New(80, 24),
	}
	if deps.Google != nil {
		m.google = deps.Google.State()
	}
	return m
}

// Init defers startup to Update so the first view's state is kept.
func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return startMsg{} }
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.resize()
		return m.updateActiveView(msg)

	case startMsg:
		var cmds []tea.Cmd
		if m.deps.Watcher != nil {
			cmds = append(cmds, m.deps.Watcher.Start())
		}
		cmds = append(cmds, m.waitForCallback())
		if m.deps.Auth.IsAuthenticated() {
			if m.deps.Auth.ProfileMissing() {
				slog.Warn("session has no user profile")
			}
			cmds = append(cmds, m.enterDashboard())
		} else {
			cmds = append(cmds, m.showLogin(""))
		}
		return m, tea.Batch(cmds...)

	case login.LoggedInMsg:
		cmd := m.enterDashboard()
		return m, tea.Batch(cmd, showToast("Welcome, "+m.deps.Auth.DisplayName(), false))

	case SessionExpiredMsg:
		slog.Warn("session expired", "err", msg.Err)
		m.deps.Poller.Cancel()
		m.deps.Auth.Expire()
		cmd := m.showLogin(expiredNotice)
		return m, cmd

	case toastMsg:
		m.toastSeq++
		m.toast = msg.text
		m.toastErr = msg.isErr
		seq := m.toastSeq
		return m, tea.Tick(toastDuration, func(time.Time) tea.Msg {
			return toastExpiredMsg{seq: seq}
		})

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
			m.toastErr = false
		}
		return m, nil

	// Task poll chain. The dashboard owns the status line, so it sees
	// every update regardless of the active view.
	case appsync.TaskStatusMsg:
		var cmd tea.Cmd
		m.dashboard, cmd = m.dashboard.Update(msg)
		m.analytics.SetRows(m.dashboard.Rows())
		return m, tea.Batch(cmd, m.deps.Poller.WaitForNextResult())

	case appsync.TaskDoneMsg:
		var cmd tea.Cmd
		m.dashboard, cmd = m.dashboard.Update(msg)
		m.analytics.SetRows(m.dashboard.Rows())
		switch {
		case msg.Cancelled:
			return m, tea.Batch(cmd, showToast("Polling stopped", false))
		case msg.AuthExpired:
			return m, cmd
		case msg.Error != nil:
			slog.Error("metrics task failed", "err", msg.Error)
			return m, tea.Batch(cmd, showToast(errorText(msg.Error), true))
		}
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.dashboard, cmd = m.dashboard.Update(msg)
		return m, cmd

	case appsync.GoogleStatusMsg:
		m.google = msg.Connection
		if msg.Error != nil {
			slog.Debug("google status check", "err", msg.Error)
		}
		return m, m.deps.Watcher.WaitForNextResult()

	case googleConnectMsg:
		if msg.err != nil {
			slog.Error("connecting google", "err", msg.err)
			return m, showToast(errorText(msg.err), true)
		}
		return m, showToast("Finish signing in to Google in your browser", false)

	case oauthResultMsg:
		notify := showToast("Google account connected", false)
		if msg.err != nil {
			notify = showToast("Google connection failed: "+errorText(msg.err), true)
		}
		if m.deps.Google != nil {
			m.google = m.deps.Google.State()
		}
		if m.deps.Watcher != nil {
			m.deps.Watcher.Refresh()
		}
		return m, tea.Batch(notify, m.waitForCallback())

	case snapshotRestoredMsg:
		if m.deps.State.RestoreResult(msg.snap.TaskID, &msg.snap.Result) {
			m.dashboard.Refresh()
			m.analytics.SetRows(m.dashboard.Rows())
			return m, showToast("Showing cached metrics from "+msg.age, false)
		}
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			slog.Error("exporting report", "path", msg.path, "err", msg.err)
			return m, showToast("Export failed: "+msg.err.Error(), true)
		}
		return m, showToast("Exported report to "+msg.path, false)

	case historyMsg:
		if msg.err != nil {
			return m, showToast(errorText(msg.err), true)
		}
		return m, showToast(msg.text, false)

	// Dashboard requests.
	case customers.FetchMsg:
		return m, m.startFetch()

	case customers.CancelPollMsg:
		m.deps.Poller.Cancel()
		return m, nil

	case customers.NewCustomerMsg:
		m.switchTo(ViewCustomerForm)
		cmd := m.customerForm.StartCreate(m.dashboard.Snapshot().Labels)
		return m, cmd

	case customers.EditCustomerMsg:
		m.switchTo(ViewCustomerForm)
		cmd := m.customerForm.StartEdit(msg.Customer, m.dashboard.Snapshot().Labels)
		return m, cmd

	case customers.DeleteCustomerMsg:
		m.switchTo(ViewCustomerForm)
		cmd := m.customerForm.StartDelete(msg.Customer)
		return m, cmd

	case customers.OpenFilterMsg:
		m.switchTo(ViewFilter)
		cmd := m.filterView.Start(m.dashboard.Filter(), m.dashboard.Snapshot().Labels)
		return m, cmd

	case customers.ManagerSelectedMsg:
		return m, m.restoreSnapshot(msg.ManagerID)

	case customers.ErrMsg:
		if m.currentView == ViewDashboard {
			return m, showToast(errorText(msg.Err), true)
		}
		return m, nil

	// Customer dialogs.
	case customerform.CustomerSavedMsg:
		m.currentView = ViewDashboard
		verb := "updated"
		if msg.Created {
			verb = "created"
		}
		reload := m.dashboard.Reload()
		return m, tea.Batch(reload, showToast("Customer "+msg.Name+" "+verb, false))

	case customerform.CustomerDeletedMsg:
		m.currentView = ViewDashboard
		reload := m.dashboard.Reload()
		return m, tea.Batch(reload, showToast("Customer "+msg.Name+" deleted", false))

	case customerform.LabelCreatedMsg:
		m.deps.State.AddLabel(msg.Label)
		m.dashboard.Refresh()
		return m, showToast("Label "+msg.Label.Label+" created", false)

	case customerform.CancelMsg:
		m.currentView = ViewDashboard
		return m, nil

	case filter.AppliedMsg:
		m.dashboard.SetFilter(msg.Filter)
		m.analytics.SetRows(m.dashboard.Rows())
		m.currentView = ViewDashboard
		return m, nil

	case filter.CancelMsg:
		m.currentView = ViewDashboard
		return m, nil

	// Secondary views.
	case labelmgr.LabelListCloseMsg:
		m.currentView = ViewDashboard
		return m, nil

	case labelmgr.LabelCreatedMsg:
		m.deps.State.AddLabel(msg.Label)
		m.dashboard.Refresh()
		return m, nil

	case analytics.CloseMsg:
		m.currentView = ViewDashboard
		return m, nil

	case helpview.CloseMsg:
		m.currentView = m.previousView
		return m, nil

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		cmd := m.executeCommand(msg.Command)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.stop()
			return m, tea.Quit
		}
		if !m.inputActive() {
			if handled, next, cmd := m.handleGlobalKey(msg); handled {
				return next, cmd
			}
		}
	}

	return m.updateActiveView(msg)
}

// inputActive reports whether the active view is consuming typed text, in
// which case global shortcuts are not intercepted.
func (m Model) inputActive() bool {
	switch m.currentView {
	case ViewLogin, ViewCustomerForm, ViewFilter, ViewCommand:
		return true
	case ViewDashboard:
		return m.dashboard.InputActive()
	case ViewLabels:
		return m.labelView.InputActive()
	}
	return false
}

func (m Model) handleGlobalKey(msg tea.KeyMsg) (bool, Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewDashboard {
			m.stop()
			return true, m, tea.Quit
		}

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return true, m, nil
		}
		m.switchTo(ViewHelp)
		return true, m, nil

	case key.Matches(msg, m.keys.Command):
		m.switchTo(ViewCommand)
		cmd := m.commandView.Focus()
		return true, m, cmd

	case key.Matches(msg, m.keys.Dashboard):
		m.currentView = ViewDashboard
		return true, m, nil

	case key.Matches(msg, m.keys.Analytics):
		m.analytics.SetRows(m.dashboard.Rows())
		m.currentView = ViewAnalytics
		return true, m, nil

	case key.Matches(msg, m.keys.Labels):
		m.labelView.SetCustomers(m.dashboard.Snapshot().Customers)
		m.currentView = ViewLabels
		return true, m, m.labelView.Init()

	case key.Matches(msg, m.keys.Sidebar):
		m.toggleSidebar(false)
		return true, m, nil

	case key.Matches(msg, m.keys.Collapse):
		m.toggleSidebar(true)
		return true, m, nil

	case key.Matches(msg, m.keys.Google):
		if m.currentView == ViewDashboard {
			return true, m, m.connectGoogle()
		}
	}
	return false, m, nil
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case ViewAnalytics:
		m.analytics, cmd = m.analytics.Update(msg)
	case ViewLabels:
		m.labelView, cmd = m.labelView.Update(msg)
	case ViewCustomerForm:
		m.customerForm, cmd = m.customerForm.Update(msg)
	case ViewFilter:
		m.filterView, cmd = m.filterView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.currentView == ViewLogin {
		return m.loginView.View()
	}

	header := m.layout.RenderHeader(appTitle, m.navbar()...)
	sidebar := m.layout.RenderSidebar(sidebarItems, m.sidebarIndex())
	statusBar := m.layout.RenderStatusBar(m.statusLine())

	return m.layout.RenderWithFrame(header, sidebar, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewDashboard:
		return m.dashboard.View()
	case ViewAnalytics:
		return m.analytics.View()
	case ViewLabels:
		return m.labelView.View()
	case ViewCustomerForm:
		return m.customerForm.View()
	case ViewFilter:
		return m.filterView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

func (m Model) navbar() []string {
	name := m.deps.Auth.DisplayName()
	status := "Connect Google (g)"
	if m.google.IsConnected {
		status = "Google Connected"
		if u := m.google.GoogleUser; u != nil && u.Email != "" {
			status += " · " + u.Email
		}
	}
	return []string{
		theme.HeaderStyle.Render(name),
		theme.GoogleStyle(m.google.IsConnected).Render(status),
	}
}

func (m Model) sidebarIndex() int {
	switch m.currentView {
	case ViewAnalytics:
		return 1
	case ViewLabels:
		return 2
	default:
		return 0
	}
}

// statusLine shows the active toast, or key hints for the current view.
func (m Model) statusLine() string {
	if m.toast != "" {
		if m.toastErr {
			return theme.ErrorStyle.Render(m.toast)
		}
		return theme.ToastStyle.Render(m.toast)
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc cancel"
	case ViewAnalytics:
		return "tab spend/clicks | esc back | 1 dashboard | 3 labels"
	case ViewLabels:
		return "n new | R reload | esc back"
	case ViewCustomerForm, ViewFilter:
		return "enter submit | esc cancel"
	default:
		hint := "q quit | ? help | : command | f fetch | / filter | n new | b sidebar"
		if s := customers.FilterSummary(m.dashboard.Filter(), m.dashboard.Snapshot().Labels); s != "" {
			hint = s + " | " + hint
		}
		return hint
	}
}

func (m *Model) switchTo(v ViewState) {
	if m.currentView != v {
		m.previousView = m.currentView
	}
	m.currentView = v
}

func (m *Model) resize() {
	snap := m.deps.Sessions.Snapshot().Sidebar
	m.layout = m.layout.WithSidebar(snap.Open, snap.Collapsed)

	w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
	m.loginView.SetSize(m.layout.Width, m.layout.Height)
	m.dashboard.SetSize(w, h)
	m.analytics.SetSize(w, h)
	m.labelView.SetSize(w, h)
	m.customerForm.SetSize(w, h)
	m.filterView.SetSize(w, h)
	m.helpView.SetSize(w, h)
	m.commandView.SetSize(w, h)
}

func (m *Model) toggleSidebar(collapse bool) {
	var err error
	if collapse {
		err = m.deps.Sessions.ToggleSidebarCollapse()
	} else {
		err = m.deps.Sessions.ToggleSidebar()
	}
	if err != nil {
		slog.Warn("saving sidebar state", "err", err)
	}
	m.resize()
}

// showToast returns a command that shows text in the status bar.
func showToast(text string, isErr bool) tea.Cmd {
	return func() tea.Msg { return toastMsg{text: text, isErr: isErr} }
}

func (m *Model) showLogin(notice string) tea.Cmd {
	m.currentView = ViewLogin
	m.previousView = ViewLogin
	return m.loginView.Start(notice)
}

func (m *Model) enterDashboard() tea.Cmd {
	m.currentView = ViewDashboard
	m.previousView = ViewDashboard
	return m.dashboard.Init()
}

// stop releases the background loops before quitting.
func (m Model) stop() {
	m.deps.Poller.Stop()
	if m.deps.Watcher != nil {
		m.deps.Watcher.Stop()
	}
}
