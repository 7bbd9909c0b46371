package labelmgr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/adsdash/internal/api"
	"github.com/nhle/adsdash/internal/keys"
	"github.com/nhle/adsdash/internal/model"
	"github.com/nhle/adsdash/internal/theme"
)

const requestTimeout = 30 * time.Second

// Backend lists and creates labels.
type Backend interface {
	ListLabels(ctx context.Context) ([]model.Label, error)
	CreateLabel(ctx context.Context, name string) (*model.Label, error)
}

// LabelListCloseMsg signals the parent to close the label view.
type LabelListCloseMsg struct{}

// LabelCreatedMsg signals that a label was added.
type LabelCreatedMsg struct {
	Label model.Label
}

type labelMode int

const (
	modeList labelMode = iota
	modeForm
)

type formBindings struct {
	name string
}

type labelsLoadedMsg struct {
	labels []model.Label
	err    error
}

type labelSavedMsg struct {
	label *model.Label
	err   error
}

// Model is the Bubble Tea model for label management.
type Model struct {
	mode        labelMode
	backend     Backend
	keys        *keys.KeyMap
	labels      []model.Label
	usage       map[int64]int
	selectedIdx int
	form        *huh.Form
	fb          *formBindings
	statusMsg   string
	loading     bool
	width       int
	height      int
}

// New creates a new label manager model.
func New(b Backend, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:    modeList,
		backend: b,
		keys:    k,
		fb:      &formBindings{},
		usage:   map[int64]int{},
		width:   width, height: height,
	}
}

// Init loads labels from the API.
func (m Model) Init() tea.Cmd {
	return m.loadLabels()
}

// SetCustomers updates the per-label customer counts.
func (m *Model) SetCustomers(customers []model.Customer) {
	m.usage = make(map[int64]int, len(customers))
	for _, c := range customers {
		if c.GACustomerLabel != nil {
			m.usage[*c.GACustomerLabel]++
		}
	}
}

// InputActive reports whether the new-label form has keyboard focus.
func (m Model) InputActive() bool {
	return m.mode == modeForm
}

// Labels returns the labels currently shown.
func (m Model) Labels() []model.Label {
	return m.labels
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case labelsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			slog.Error("loading labels", "err", msg.err)
			m.statusMsg = fmt.Sprintf("Error: %s", api.Message(msg.err))
			return m, nil
		}
		m.labels = msg.labels
		if m.selectedIdx >= len(m.labels) && m.selectedIdx > 0 {
			m.selectedIdx = len(m.labels) - 1
		}
		return m, nil

	case labelSavedMsg:
		m.mode = modeList
		if msg.err != nil {
			slog.Error("creating label", "err", msg.err)
			m.statusMsg = fmt.Sprintf("Error: %s", api.Message(msg.err))
			return m, nil
		}
		label := *msg.label
		m.labels = append(m.labels, label)
		m.selectedIdx = len(m.labels) - 1
		m.statusMsg = fmt.Sprintf("Label %q created", label.Label)
		return m, func() tea.Msg { return LabelCreatedMsg{Label: label} }

	case tea.KeyMsg:
		if m.mode == modeForm {
			if msg.String() == "esc" {
				m.mode = modeList
				return m, nil
			}
			return m.updateForm(msg)
		}
		return m.handleListKey(msg)
	}

	if m.mode == modeForm {
		return m.updateForm(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return LabelListCloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(m.labels) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.labels)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.labels) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.labels) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		m.loading = true
		return m, m.loadLabels()

	case key.Matches(msg, m.keys.New):
		m.fb.name = ""
		m.statusMsg = ""
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()
	}
	return m, nil
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Label").
				Placeholder("Label name").
				Value(&m.fb.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("label name is required")
					}
					return nil
				}),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		m.statusMsg = "Saving..."
		return m, m.saveLabel(strings.TrimSpace(m.fb.name))
	}
	if m.form.State == huh.StateAborted {
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

// View renders the label manager.
func (m Model) View() string {
	if m.mode == modeForm && m.form != nil {
		content := theme.TitleStyle.Render("New Label") + "\n" + m.form.View()
		return lipgloss.NewStyle().Padding(1, 2).Render(content)
	}
	return m.viewList()
}

func (m Model) viewList() string {
	var b strings.Builder

	b.WriteString(theme.TitleStyle.Render("Labels"))
	b.WriteString("\n\n")

	switch {
	case m.loading && len(m.labels) == 0:
		b.WriteString(theme.DimmedStyle.Render("Loading labels..."))
	case len(m.labels) == 0:
		emptyStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true)
		b.WriteString(emptyStyle.Render("No labels yet. Press 'n' to create one."))
	default:
		for i, l := range m.labels {
			name := theme.LabelStyle(l.ID).Render("● ") + l.Label
			count := theme.DimmedStyle.Render(fmt.Sprintf("  %d customers", m.usage[l.ID]))
			row := name + count

			if i == m.selectedIdx {
				b.WriteString(theme.SelectedItemStyle.Render(row))
			} else {
				b.WriteString(theme.ListItemStyle.Render(row))
			}
			b.WriteString("\n")
		}
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.ToastStyle.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorGray).Render(
		"n new | R reload | esc back",
	))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
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

func (m Model) loadLabels() tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		labels, err := b.ListLabels(ctx)
		return labelsLoadedMsg{labels: labels, err: err}
	}
}

func (m Model) saveLabel(name string) tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		label, err := b.CreateLabel(ctx, name)
		if err == nil && label == nil {
			err = fmt.Errorf("creating label %q: empty response", name)
		}
		return labelSavedMsg{label: label, err: err}
	}
}
