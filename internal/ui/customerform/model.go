package customerform

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/adsdash/internal/api"
	"github.com/nhle/adsdash/internal/model"
	"github.com/nhle/adsdash/internal/theme"
)

// newLabelOption is the label select value that opens the label dialog.
const newLabelOption = "new"

const requestTimeout = 30 * time.Second

// Backend is the subset of the API used by the customer dialogs.
type Backend interface {
	CreateCustomer(ctx context.Context, in model.CustomerInput) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, in model.CustomerInput) error
	DeleteCustomer(ctx context.Context, id int64) error
	CreateLabel(ctx context.Context, name string) (*model.Label, error)
}

// CustomerSavedMsg is dispatched after a customer was created or updated.
type CustomerSavedMsg struct {
	Name    string
	Created bool
}

// CustomerDeletedMsg is dispatched after a customer was deleted.
type CustomerDeletedMsg struct {
	Name string
}

// LabelCreatedMsg is dispatched when a label was created from inside the
// customer dialog.
type LabelCreatedMsg struct {
	Label model.Label
}

// CancelMsg is dispatched when the user closes the dialog.
type CancelMsg struct{}

type formMode int

const (
	modeCustomer formMode = iota
	modeLabel
	modeConfirmDelete
)

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	name       string
	budget     string
	customerID string
	labelID    string
	labelName  string
	confirm    bool
}

type savedMsg struct {
	created bool
	err     error
}

type deletedMsg struct{ err error }

type labelSavedMsg struct {
	label *model.Label
	err   error
}

// Model is the Bubble Tea model for the add/edit/delete customer dialogs.
type Model struct {
	backend Backend
	mode    formMode
	form    *huh.Form
	fb      *formBindings

	editing *model.Customer
	labels  []model.Label

	// firstLabel is set when the dialog was opened with no labels.
	firstLabel bool

	busy   bool
	errMsg string
	width  int
	height int
}

// New creates a new customer dialog model.
func New(backend Backend, width, height int) Model {
	return Model{
		backend: backend,
		fb:      &formBindings{},
		width:   width,
		height:  height,
	}
}

// StartCreate opens the add dialog. With no labels the label dialog is
// shown first.
func (m *Model) StartCreate(labels []model.Label) tea.Cmd {
	m.reset(labels)
	m.editing = nil
	*m.fb = formBindings{}
	return m.open()
}

// StartEdit opens the edit dialog pre-filled from c.
func (m *Model) StartEdit(c model.Customer, labels []model.Label) tea.Cmd {
	m.reset(labels)
	m.editing = &c
	f := model.CustomerFormFrom(c)
	*m.fb = formBindings{
		name:       f.Name,
		budget:     f.Budget,
		customerID: f.CustomerID,
		labelID:    f.LabelID,
	}
	return m.open()
}

// StartDelete opens the delete confirmation for c.
func (m *Model) StartDelete(c model.Customer) tea.Cmd {
	m.reset(m.labels)
	m.editing = &c
	m.fb.confirm = false
	m.mode = modeConfirmDelete
	m.form = m.buildConfirmForm()
	return m.form.Init()
}

func (m *Model) reset(labels []model.Label) {
	m.labels = labels
	m.firstLabel = false
	m.busy = false
	m.errMsg = ""
}

func (m *Model) open() tea.Cmd {
	if err := model.RequireLabels(m.labels); err != nil {
		m.firstLabel = true
		return m.startLabel()
	}
	return m.startCustomer()
}

func (m *Model) startCustomer() tea.Cmd {
	m.mode = modeCustomer
	m.form = m.buildCustomerForm()
	return m.form.Init()
}

func (m *Model) startLabel() tea.Cmd {
	m.mode = modeLabel
	m.fb.labelName = ""
	m.form = m.buildLabelForm()
	return m.form.Init()
}

// Editing reports whether the dialog edits an existing customer.
func (m Model) Editing() bool {
	return m.editing != nil && m.mode != modeConfirmDelete
}

// Update handles messages for the dialog.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case savedMsg:
		m.busy = false
		if msg.err != nil {
			slog.Error("saving customer", "err", msg.err)
			m.errMsg = api.Message(msg.err)
			cmd := m.startCustomer()
			return m, cmd
		}
		name := strings.TrimSpace(m.fb.name)
		return m, func() tea.Msg { return CustomerSavedMsg{Name: name, Created: msg.created} }

	case deletedMsg:
		m.busy = false
		if msg.err != nil {
			slog.Error("deleting customer", "err", msg.err)
			cmd := m.StartDelete(*m.editing)
			m.errMsg = api.Message(msg.err)
			return m, cmd
		}
		name := m.editing.GACustomerName
		return m, func() tea.Msg { return CustomerDeletedMsg{Name: name} }

	case labelSavedMsg:
		m.busy = false
		if msg.err != nil {
			slog.Error("creating label", "err", msg.err)
			m.errMsg = api.Message(msg.err)
			m.form = m.buildLabelForm()
			return m, m.form.Init()
		}
		m.errMsg = ""
		m.firstLabel = false
		label := *msg.label
		m.labels = append(m.labels, label)
		m.fb.labelID = strconv.FormatInt(label.ID, 10)
		cmd := m.startCustomer()
		return m, tea.Batch(
			func() tea.Msg { return LabelCreatedMsg{Label: label} },
			cmd,
		)

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if msg.String() == "esc" {
			return m.back()
		}
	}

	if m.form == nil || m.busy {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.submit()
	case huh.StateAborted:
		return m.back()
	}
	return m, cmd
}

// back leaves the label dialog for the customer form, or closes.
func (m Model) back() (Model, tea.Cmd) {
	if m.mode == modeLabel && !m.firstLabel {
		if m.fb.labelID == newLabelOption {
			m.fb.labelID = ""
		}
		m.errMsg = ""
		cmd := m.startCustomer()
		return m, cmd
	}
	return m, func() tea.Msg { return CancelMsg{} }
}

func (m Model) submit() (Model, tea.Cmd) {
	switch m.mode {
	case modeLabel:
		m.busy = true
		return m, m.saveLabel(strings.TrimSpace(m.fb.labelName))

	case modeConfirmDelete:
		if !m.fb.confirm {
			return m, func() tea.Msg { return CancelMsg{} }
		}
		m.busy = true
		return m, m.deleteCustomer(m.editing.ID)
	}

	if m.fb.labelID == newLabelOption {
		cmd := m.startLabel()
		return m, cmd
	}

	in, err := m.formValues().Input()
	if err != nil {
		m.errMsg = err.Error()
		cmd := m.startCustomer()
		return m, cmd
	}
	m.busy = true
	return m, m.saveCustomer(in)
}

func (m Model) formValues() model.CustomerForm {
	return model.CustomerForm{
		Name:       m.fb.name,
		Budget:     m.fb.budget,
		CustomerID: m.fb.customerID,
		LabelID:    m.fb.labelID,
	}
}

// View renders the active dialog.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	var title string
	switch {
	case m.mode == modeConfirmDelete:
		title = "Delete Customer"
	case m.mode == modeLabel && m.firstLabel:
		title = "Create your first label"
	case m.mode == modeLabel:
		title = "New Label"
	case m.editing != nil:
		title = "Edit Customer"
	default:
		title = "Add Customer"
	}

	content := theme.TitleStyle.Render(title) + "\n"
	if m.mode == modeLabel && m.firstLabel {
		content += theme.DimmedStyle.Render("Customers must be labelled. Add a label to continue.") + "\n\n"
	}
	content += m.form.View()
	if m.busy {
		content += "\n" + theme.ToastStyle.Render("Saving...")
	}
	if m.errMsg != "" {
		content += "\n" + theme.ErrorStyle.Render(m.errMsg)
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildCustomerForm() *huh.Form {
	opts := make([]huh.Option[string], 0, len(m.labels)+2)
	opts = append(opts, huh.NewOption("Select a label", ""))
	for _, l := range m.labels {
		opts = append(opts, huh.NewOption(l.Label, strconv.FormatInt(l.ID, 10)))
	}
	opts = append(opts, huh.NewOption("+ New label", newLabelOption))

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("Customer name").
				Value(&m.fb.name).
				Validate(model.ValidateCustomerName),
			huh.NewInput().
				Title("Budget").
				Placeholder("1000.00").
				Value(&m.fb.budget).
				Validate(model.ValidateBudget),
			huh.NewInput().
				Title("Customer ID").
				Placeholder("Ads account id, e.g. 1234567890").
				Value(&m.fb.customerID).
				Validate(model.ValidateExternalCustomerID),
			huh.NewSelect[string]().
				Title("Label").
				Options(opts...).
				Value(&m.fb.labelID).
				Validate(validateLabel),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) buildLabelForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Label").
				Placeholder("Label name").
				Value(&m.fb.labelName).
				Validate(validateRequired("label name")),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) buildConfirmForm() *huh.Form {
	name := ""
	if m.editing != nil {
		name = m.editing.GACustomerName
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete customer %q?", name)).
				Description("This cannot be undone.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) saveCustomer(in model.CustomerInput) tea.Cmd {
	b := m.backend
	var id int64
	create := m.editing == nil
	if !create {
		id = m.editing.ID
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if create {
			_, err := b.CreateCustomer(ctx, in)
			return savedMsg{created: true, err: err}
		}
		return savedMsg{err: b.UpdateCustomer(ctx, id, in)}
	}
}

func (m Model) deleteCustomer(id int64) tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return deletedMsg{err: b.DeleteCustomer(ctx, id)}
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

func validateLabel(s string) error {
	if s == newLabelOption {
		return nil
	}
	return model.ValidateLabelSelection(s)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
