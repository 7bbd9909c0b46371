package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/adsdash/internal/theme"
)

// Names lists the commands the prompt understands, used for completion.
var Names = []string{
	"refresh",
	"fetch",
	"export csv",
	"export json",
	"connect google",
	"sidebar",
	"history",
	"logout",
	"quit",
}

// Command is a parsed command line.
type Command struct {
	Name string
	Args []string
}

// Arg returns the i-th argument or "".
func (c Command) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

// Parse splits a command line into its name and arguments. Two-word
// commands such as "export csv" and "connect google" keep both words in
// the name.
func Parse(line string) Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]
	switch name {
	case "export", "connect":
		if len(args) > 0 {
			name += " " + strings.ToLower(args[0])
			args = args[1:]
		}
	case "q":
		name = "quit"
	}
	return Command{Name: name, Args: args}
}

// CommandMsg is emitted when the user executes a command.
type CommandMsg struct {
	Command Command
}

// CancelMsg is emitted when the prompt is dismissed.
type CancelMsg struct{}

// Model is the command prompt.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command prompt model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "refresh, export csv <path>, connect google, logout..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(Names)
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command prompt.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line == "" {
				return m, func() tea.Msg { return CancelMsg{} }
			}
			c := Parse(line)
			return m, func() tea.Msg { return CommandMsg{Command: c} }
		case "esc":
			m.input.Reset()
			return m, func() tea.Msg { return CancelMsg{} }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command prompt.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Command")

	content := lipgloss.JoinVertical(lipgloss.Left, title, m.input.View())

	return theme.PanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the prompt dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
