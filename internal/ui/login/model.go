package login

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/adsdash/internal/api"
	"github.com/nhle/adsdash/internal/auth"
	"github.com/nhle/adsdash/internal/theme"
)

const loginTimeout = 30 * time.Second

// Authenticator performs the login call and persists the session.
type Authenticator interface {
	Login(ctx context.Context, username, password string) error
}

// LoggedInMsg is dispatched after a successful login.
type LoggedInMsg struct{}

type loginResultMsg struct{ err error }

type formBindings struct {
	username string
	password string
}

// Model is the login view.
type Model struct {
	auth   Authenticator
	form   *huh.Form
	fb     *formBindings
	busy   bool
	errMsg string

	// notice is shown above the form, e.g. after a session expired.
	notice string

	width  int
	height int
}

// New creates a login view.
func New(a Authenticator, width, height int) Model {
	return Model{
		auth:   a,
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start resets the form. The username is kept between attempts.
func (m *Model) Start(notice string) tea.Cmd {
	m.notice = notice
	m.busy = false
	m.errMsg = ""
	m.fb.password = ""
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the login view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		m.busy = false
		if msg.err != nil {
			slog.Warn("login failed", "err", msg.err)
			notice := m.notice
			cmd := m.Start(notice)
			m.errMsg = ErrorText(msg.err)
			return m, cmd
		}
		m.fb.password = ""
		return m, func() tea.Msg { return LoggedInMsg{} }

	case tea.KeyMsg:
		if m.busy {
			return m, nil
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
		m.busy = true
		m.errMsg = ""
		return m, m.login(m.fb.username, m.fb.password)
	case huh.StateAborted:
		return m, tea.Quit
	}
	return m, cmd
}

// ErrorText maps a login error to the message shown under the form.
func ErrorText(err error) string {
	switch status := api.StatusCode(err); {
	case errors.Is(err, auth.ErrEmptyCredentials):
		return "Username and password are required"
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return "Invalid credentials"
	case api.IsAuthError(err):
		return "Invalid credentials"
	default:
		return api.Message(err)
	}
}

// View renders the login form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	content := theme.TitleStyle.Render("Sign in")
	if m.notice != "" {
		content += "\n" + theme.ToastStyle.Render(m.notice)
	}
	content += "\n" + m.form.View()
	if m.busy {
		content += "\n" + theme.DimmedStyle.Render("Signing in...")
	}
	if m.errMsg != "" {
		content += "\n" + theme.ErrorStyle.Render(m.errMsg)
	}

	box := theme.PanelStyle.Width(m.formWidth() + 4).Render(content)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username").
				Value(&m.fb.username).
				Validate(required("username")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(required("password")),
		),
	).WithWidth(m.formWidth()).WithShowHelp(false)
}

func (m Model) formWidth() int {
	w := m.width / 2
	if w < 36 {
		w = 36
	}
	if w > 60 {
		w = 60
	}
	return w
}

func (m Model) login(username, password string) tea.Cmd {
	a := m.auth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
		defer cancel()
		return loginResultMsg{err: a.Login(ctx, username, password)}
	}
}

func required(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return errors.New(field + " is required")
		}
		return nil
	}
}
