package command

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"", Command{}},
		{"refresh", Command{Name: "refresh", Args: []string{}}},
		{"q", Command{Name: "quit", Args: []string{}}},
		{"export csv out.csv", Command{Name: "export csv", Args: []string{"out.csv"}}},
		{"Export JSON  /tmp/a.json", Command{Name: "export json", Args: []string{"/tmp/a.json"}}},
		{"connect google", Command{Name: "connect google", Args: []string{}}},
		{"export", Command{Name: "export", Args: []string{}}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.line))
		})
	}
}

func TestArg(t *testing.T) {
	c := Parse("export csv out.csv")
	assert.Equal(t, "out.csv", c.Arg(0))
	assert.Empty(t, c.Arg(1))
}

func TestEnterEmitsCommand(t *testing.T) {
	m := New(80, 24)
	m.input.SetValue("export csv report.csv")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg, ok := cmd().(CommandMsg)
	require.True(t, ok)
	assert.Equal(t, "export csv", msg.Command.Name)
	assert.Equal(t, "report.csv", msg.Command.Arg(0))
	assert.Empty(t, m.input.Value())
}

func TestEmptyEnterCancels(t *testing.T) {
	m := New(80, 24)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, CancelMsg{}, cmd())
}

func TestEscCancels(t *testing.T) {
	m := New(80, 24)
	m.input.SetValue("logo")
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CancelMsg{}, cmd())
	assert.Empty(t, m.input.Value())
}
