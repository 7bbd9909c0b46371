package customers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/adsdash/internal/api"
	"github.com/nhle/adsdash/internal/dashboard"
	"github.com/nhle/adsdash/internal/keys"
	"github.com/nhle/adsdash/internal/model"
	appsync "github.com/nhle/adsdash/internal/sync"
	"github.com/nhle/adsdash/internal/theme"
)

const loadTimeout = 30 * time.Second

// FetchMsg asks the parent to start a metrics task.
type FetchMsg struct{}

// CancelPollMsg asks the parent to stop the running poll chain.
type CancelPollMsg struct{}

// NewCustomerMsg asks the parent to open the add customer dialog.
type NewCustomerMsg struct{}

// EditCustomerMsg asks the parent to open the edit dialog.
type EditCustomerMsg struct {
	Customer model.Customer
}

// DeleteCustomerMsg asks the parent to confirm deletion.
type DeleteCustomerMsg struct {
	Customer model.Customer
}

// OpenFilterMsg asks the parent to open the filter dialog.
type OpenFilterMsg struct{}

// ManagerSelectedMsg is dispatched when the account selection changed.
type ManagerSelectedMsg struct {
	ManagerID string
}

// ErrMsg reports a failed load to the parent.
type ErrMsg struct {
	Err error
}

type managersLoadedMsg struct{ err error }
type customersLoadedMsg struct{ err error }
type labelsLoadedMsg struct{ err error }

type viewMode int

const (
	modeTable viewMode = iota
	modeManager
	modeDates
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	managerID string
	startDate string
	endDate   string
}

// Model is the dashboard view: account and date selection, the customer
// table and the task status line.
type Model struct {
	state   *dashboard.State
	keys    *keys.KeyMap
	mode    viewMode
	form    *huh.Form
	fb      *formBindings
	table   table.Model
	spinner spinner.Model
	filter  dashboard.Filter
	page    dashboard.Page
	snap    dashboard.Snapshot

	loading int
	errMsg  string
	width   int
	height  int
}

// New creates the dashboard view over state.
func New(state *dashboard.State, k *keys.KeyMap, pageSize, width, height int) Model {
	km := table.DefaultKeyMap()
	km.PageUp = key.NewBinding(key.WithKeys("pgup"))
	km.PageDown = key.NewBinding(key.WithKeys("pgdown"))
	km.HalfPageUp = key.NewBinding(key.WithKeys("ctrl+u"))
	km.HalfPageDown = key.NewBinding(key.WithKeys("ctrl+d"))
	km.GotoTop = key.NewBinding(key.WithKeys("home"))
	km.GotoBottom = key.NewBinding(key.WithKeys("end"))

	t := table.New(
		table.WithFocused(true),
		table.WithKeyMap(km),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(theme.ColorWhite).
		Background(theme.ColorBlue).
		Bold(false)
	t.SetStyles(styles)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorYellow)

	m := Model{
		state:   state,
		keys:    k,
		fb:      &formBindings{},
		table:   t,
		spinner: s,
		filter:  dashboard.NewFilter(pageSize),
		width:   width,
		height:  height,
	}
	m.layoutTable()
	return m
}

// Init loads managers, customers and labels. A default date range of the
// last 30 days is applied when none is set.
func (m *Model) Init() tea.Cmd {
	if snap := m.state.Snapshot(); snap.Dates.StartDate == "" {
		d := model.DefaultDateRange(time.Now())
		if err := m.state.SetDateRange(d.StartDate, d.EndDate); err != nil {
			slog.Warn("setting default date range", "err", err)
		}
	}
	m.refresh()
	m.loading = 3
	return tea.Batch(m.loadManagers(), m.loadCustomers(), m.loadLabels(), m.spinner.Tick)
}

// Reload refreshes customers and labels from the API.
func (m *Model) Reload() tea.Cmd {
	m.loading += 2
	return tea.Batch(m.loadCustomers(), m.loadLabels(), m.spinner.Tick)
}

// InputActive reports whether a form has keyboard focus.
func (m Model) InputActive() bool {
	return m.mode != modeTable
}

// Filter returns the active filter.
func (m Model) Filter() dashboard.Filter {
	return m.filter
}

// SetFilter applies f and rebuilds the table.
func (m *Model) SetFilter(f dashboard.Filter) {
	m.filter = f
	m.refresh()
}

// Rows returns every row matching the filter, across all pages.
func (m Model) Rows() []dashboard.Row {
	var matched []model.Customer
	for _, c := range m.snap.Customers {
		if m.filter.Match(c) {
			matched = append(matched, c)
		}
	}
	return dashboard.Rows(matched, m.snap.Labels, m.snap.Result)
}

// Snapshot returns the state as last rendered.
func (m Model) Snapshot() dashboard.Snapshot {
	return m.snap
}

// Refresh re-reads the dashboard state, e.g. after a CRUD change.
func (m *Model) Refresh() {
	m.refresh()
}

func (m *Model) refresh() {
	m.snap = m.state.Snapshot()
	m.page = m.filter.Apply(m.snap.Customers)
	m.filter.Page = m.page.Page
	m.setRows()
}

func (m *Model) setRows() {
	rows := dashboard.Rows(m.page.Customers, m.snap.Labels, m.snap.Result)
	tableRows := make([]table.Row, len(rows))
	for i, r := range rows {
		tableRows[i] = tableRow(r)
	}
	m.table.SetRows(tableRows)
	n := len(tableRows)
	switch {
	case n == 0:
	case m.table.Cursor() < 0:
		m.table.SetCursor(0)
	case m.table.Cursor() >= n:
		m.table.SetCursor(n - 1)
	}
}

func tableRow(r dashboard.Row) table.Row {
	c := r.Customer
	row := table.Row{
		c.GACustomerName,
		c.ExternalID(),
		dashboard.Currency(c.GACurrentBudget),
		dashboard.Currency(c.GAIdealDailySpend),
		dashboard.Percent(c.GABudgetPacing),
		r.Label,
		"-", "-", "-", "-",
	}
	if d := r.Metrics; d != nil {
		row[6] = dashboard.Currency(d.Spend)
		row[7] = dashboard.Count(d.Clicks)
		row[8] = fmt.Sprintf("%.1f", d.AllConversions)
		row[9] = dashboard.Currency(d.CPC)
	}
	return row
}

// selected returns the customer under the cursor.
func (m Model) selected() (model.Customer, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.page.Customers) {
		return model.Customer{}, false
	}
	return m.page.Customers[i], true
}

// Update handles messages for the dashboard view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case managersLoadedMsg:
		return m.loaded(msg.err, "accounts")

	case customersLoadedMsg:
		return m.loaded(msg.err, "customers")

	case labelsLoadedMsg:
		return m.loaded(msg.err, "labels")

	case appsync.TaskStatusMsg:
		m.refresh()
		if m.snap.Polling {
			return m, m.spinner.Tick
		}
		return m, nil

	case appsync.TaskDoneMsg:
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case modeManager, modeDates:
			if msg.String() == "esc" {
				m.mode = modeTable
				return m, nil
			}
			return m.updateForm(msg)
		default:
			return m.handleTableKey(msg)
		}
	}

	if m.mode != modeTable {
		return m.updateForm(msg)
	}
	return m, nil
}

func (m Model) loaded(err error, what string) (Model, tea.Cmd) {
	if m.loading > 0 {
		m.loading--
	}
	m.refresh()
	if err != nil {
		m.errMsg = fmt.Sprintf("Failed to load %s: %s", what, api.Message(err))
		return m, func() tea.Msg { return ErrMsg{Err: err} }
	}
	m.errMsg = ""
	if what == "accounts" && m.snap.ManagerID != "" {
		id := m.snap.ManagerID
		return m, func() tea.Msg { return ManagerSelectedMsg{ManagerID: id} }
	}
	return m, nil
}

func (m Model) busy() bool {
	return m.loading > 0 || m.snap.Polling
}

func (m Model) handleTableKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Fetch), key.Matches(msg, m.keys.Retry):
		return m, func() tea.Msg { return FetchMsg{} }

	case key.Matches(msg, m.keys.Cancel):
		if !m.snap.Polling {
			return m, nil
		}
		return m, func() tea.Msg { return CancelPollMsg{} }

	case key.Matches(msg, m.keys.Manager):
		if len(m.snap.Managers) == 0 {
			m.errMsg = "No accessible accounts. Connect Google with 'g' first."
			return m, nil
		}
		m.fb.managerID = m.snap.ManagerID
		m.form = m.buildManagerForm()
		m.mode = modeManager
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Dates):
		m.fb.startDate = m.snap.Dates.StartDate
		m.fb.endDate = m.snap.Dates.EndDate
		m.form = m.buildDatesForm()
		m.mode = modeDates
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Filter):
		return m, func() tea.Msg { return OpenFilterMsg{} }

	case key.Matches(msg, m.keys.Reload):
		cmd := m.Reload()
		return m, cmd

	case key.Matches(msg, m.keys.Next):
		m.filter = m.filter.NextPage()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Prev):
		m.filter = m.filter.PrevPage()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.New):
		return m, func() tea.Msg { return NewCustomerMsg{} }

	case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Select):
		c, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return EditCustomerMsg{Customer: c} }

	case key.Matches(msg, m.keys.Delete):
		c, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return DeleteCustomerMsg{Customer: c} }
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		m.mode = modeTable
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateAborted:
		m.mode = modeTable
		return m, nil
	case huh.StateCompleted:
		return m.submitForm()
	}
	return m, cmd
}

func (m Model) submitForm() (Model, tea.Cmd) {
	switch m.mode {
	case modeManager:
		m.mode = modeTable
		id := m.fb.managerID
		if id == m.snap.ManagerID {
			return m, nil
		}
		m.state.SetSelectedManager(id)
		m.refresh()
		return m, func() tea.Msg { return ManagerSelectedMsg{ManagerID: id} }

	case modeDates:
		err := m.state.SetDateRange(strings.TrimSpace(m.fb.startDate), strings.TrimSpace(m.fb.endDate))
		if err != nil {
			m.errMsg = err.Error()
			m.form = m.buildDatesForm()
			return m, m.form.Init()
		}
		m.errMsg = ""
		m.mode = modeTable
		m.refresh()
	}
	return m, nil
}

func (m *Model) buildManagerForm() *huh.Form {
	opts := make([]huh.Option[string], len(m.snap.Managers))
	for i, mg := range m.snap.Managers {
		label := mg.Name
		if label == "" {
			label = mg.ID
		} else {
			label = fmt.Sprintf("%s (%s)", mg.Name, mg.ID)
		}
		opts[i] = huh.NewOption(label, mg.ID)
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Ads account").
				Options(opts...).
				Value(&m.fb.managerID),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) buildDatesForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Start date").
				Placeholder(model.DateLayout).
				Value(&m.fb.startDate).
				Validate(validateDate),
			huh.NewInput().
				Title("End date").
				Placeholder(model.DateLayout).
				Value(&m.fb.endDate).
				Validate(validateDate),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func validateDate(s string) error {
	if _, err := time.Parse(model.DateLayout, strings.TrimSpace(s)); err != nil {
		return errors.New("use YYYY-MM-DD")
	}
	return nil
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.viewToolbar())
	b.WriteString("\n")

	switch m.mode {
	case modeManager, modeDates:
		title := "Select Account"
		if m.mode == modeDates {
			title = "Date Range"
		}
		b.WriteString(theme.TitleStyle.Render(title))
		b.WriteString("\n")
		if m.form != nil {
			b.WriteString(m.form.View())
		}
		if m.errMsg != "" {
			b.WriteString("\n" + theme.ErrorStyle.Render(m.errMsg))
		}
		return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
	}

	if len(m.snap.Customers) == 0 && m.loading == 0 {
		b.WriteString(theme.DimmedStyle.Render("No customers yet. Press 'n' to add one."))
	} else {
		b.WriteString(m.table.View())
	}
	b.WriteString("\n")
	b.WriteString(m.viewPager())
	b.WriteString("\n")
	b.WriteString(m.viewStatus())
	if m.errMsg != "" {
		b.WriteString("\n" + theme.ErrorStyle.Render(m.errMsg))
	}

	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

func (m Model) viewToolbar() string {
	account := "none selected"
	for _, mg := range m.snap.Managers {
		if mg.ID == m.snap.ManagerID {
			account = mg.Name
			if account == "" {
				account = mg.ID
			}
		}
	}
	if account == "none selected" && m.snap.ManagerID != "" {
		account = m.snap.ManagerID
	}

	parts := []string{
		theme.DimmedStyle.Render("Account: ") + account,
		theme.DimmedStyle.Render("Dates: ") + m.snap.Dates.StartDate + " → " + m.snap.Dates.EndDate,
	}
	if m.filter.Active() {
		parts = append(parts, theme.ToastStyle.Render(FilterSummary(m.filter, m.snap.Labels)))
	}
	return strings.Join(parts, "   ")
}

func (m Model) viewPager() string {
	return theme.DimmedStyle.Render(fmt.Sprintf(
		"Page %d/%d · %d customers · %d per page",
		m.page.Page+1, m.page.Pages, m.page.Total, m.filter.PageSize,
	))
}

func (m Model) viewStatus() string {
	if m.loading > 0 {
		return m.spinner.View() + " Loading..."
	}
	snap := m.snap
	if snap.Status == "" {
		return theme.HelpStyle.Render("Press f to fetch metrics for the listed customers.")
	}

	status := theme.TaskStatusStyle(string(snap.Status)).Render(string(snap.Status))
	line := fmt.Sprintf("Task %s %s", shortID(snap.TaskID), status)

	switch {
	case snap.Polling:
		line = m.spinner.View() + " " + line + " polling... (x to stop)"
	case snap.Status == model.TaskFailure:
		msg := snap.Message
		if msg == "" {
			msg = "the metrics task failed"
		}
		line += " " + theme.ErrorStyle.Render(msg) + theme.HelpStyle.Render("  press r to retry")
	case snap.Status == model.TaskRevoked:
		line += theme.HelpStyle.Render("  task was revoked, press r to retry")
	case snap.Status == model.TaskSuccess && snap.Result != nil:
		line += theme.DimmedStyle.Render(fmt.Sprintf("  metrics for %d customers", len(snap.Result.Data)))
	case !snap.Status.IsTerminal():
		line += theme.HelpStyle.Render("  polling stopped, press r to fetch again")
	}
	return line
}

// FilterSummary describes an active filter in one line.
func FilterSummary(f dashboard.Filter, labels []model.Label) string {
	var parts []string
	if f.LabelID != 0 {
		name := model.LabelName(labels, &f.LabelID)
		if name == "" {
			name = fmt.Sprintf("#%d", f.LabelID)
		}
		parts = append(parts, "label: "+name)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		parts = append(parts, fmt.Sprintf("search: %q", s))
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.layoutTable()
}

// layoutTable sizes the columns to the available width; the name column
// takes the slack.
func (m *Model) layoutTable() {
	fixed := []table.Column{
		{Title: "Customer ID", Width: 12},
		{Title: "Budget", Width: 12},
		{Title: "Ideal/day", Width: 11},
		{Title: "Pacing", Width: 8},
		{Title: "Label", Width: 12},
		{Title: "Spend", Width: 12},
		{Title: "Clicks", Width: 8},
		{Title: "Conv.", Width: 7},
		{Title: "CPC", Width: 8},
	}
	used := 0
	for _, c := range fixed {
		used += c.Width + 2
	}
	nameWidth := m.width - 4 - used
	if nameWidth < 14 {
		nameWidth = 14
	}
	cols := append([]table.Column{{Title: "Name", Width: nameWidth}}, fixed...)

	m.table.SetColumns(cols)
	m.setRows()

	h := m.height - 8
	if h < 3 {
		h = 3
	}
	m.table.SetHeight(h)
	m.table.SetWidth(m.width - 2)
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 6
	if h < 8 {
		h = 8
	}
	return h
}

func (m Model) loadManagers() tea.Cmd {
	st := m.state
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		_, err := st.FetchManagers(ctx)
		return managersLoadedMsg{err: err}
	}
}

func (m Model) loadCustomers() tea.Cmd {
	st := m.state
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		_, err := st.FetchCustomers(ctx)
		return customersLoadedMsg{err: err}
	}
}

func (m Model) loadLabels() tea.Cmd {
	st := m.state
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		_, err := st.FetchLabels(ctx)
		return labelsLoadedMsg{err: err}
	}
}
