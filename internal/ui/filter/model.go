package filter

import (
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/adsdash/internal/dashboard"
	"github.com/nhle/adsdash/internal/model"
	"github.com/nhle/adsdash/internal/theme"
)

// AppliedMsg carries the filter chosen in the dialog.
type AppliedMsg struct {
	Filter dashboard.Filter
}

// CancelMsg is dispatched when the dialog is closed without applying.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	labelID  string
	search   string
	pageSize int
	clear    bool
}

// Model is the filter dialog.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	width  int
	height int
}

// New creates the filter dialog.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{labelID: "0", pageSize: dashboard.PageSizes[0]},
		width:  width,
		height: height,
	}
}

// Start opens the dialog pre-filled from current.
func (m *Model) Start(current dashboard.Filter, labels []model.Label) tea.Cmd {
	m.fb.labelID = "0"
	for _, l := range labels {
		if l.ID == current.LabelID {
			m.fb.labelID = strconv.FormatInt(l.ID, 10)
		}
	}
	m.fb.search = current.Search
	m.fb.pageSize = dashboard.NewFilter(current.PageSize).PageSize
	m.fb.clear = false
	m.form = m.buildForm(labels)
	return m.form.Init()
}

// Update handles messages for the dialog.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		f := m.Result()
		return m, func() tea.Msg { return AppliedMsg{Filter: f} }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// Result converts the form values to a filter on its first page.
func (m Model) Result() dashboard.Filter {
	f := dashboard.NewFilter(m.fb.pageSize)
	if m.fb.clear {
		return f
	}
	f.LabelID, _ = strconv.ParseInt(m.fb.labelID, 10, 64)
	f.Search = strings.TrimSpace(m.fb.search)
	return f
}

// View renders the dialog.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	content := theme.TitleStyle.Render("Filter Customers") + "\n" + m.form.View()
	return lipgloss.NewStyle().Padding(1, 2).Render(content)
}

// SetSize updates the dialog dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm(labels []model.Label) *huh.Form {
	labelOpts := []huh.Option[string]{huh.NewOption("All labels", "0")}
	for _, l := range labels {
		labelOpts = append(labelOpts, huh.NewOption(l.Label, strconv.FormatInt(l.ID, 10)))
	}

	sizeOpts := make([]huh.Option[int], len(dashboard.PageSizes))
	for i, n := range dashboard.PageSizes {
		sizeOpts[i] = huh.NewOption(strconv.Itoa(n)+" per page", n)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Label").
				Options(labelOpts...).
				Value(&m.fb.labelID),
			huh.NewInput().
				Title("Search").
				Placeholder("Name or customer ID").
				Value(&m.fb.search),
			huh.NewSelect[int]().
				Title("Page size").
				Options(sizeOpts...).
				Value(&m.fb.pageSize),
			huh.NewConfirm().
				Title("Clear filters?").
				Affirmative("Clear").
				Negative("Apply").
				Value(&m.fb.clear),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
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
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}
