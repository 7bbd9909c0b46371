package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/adsdash/internal/theme"
)

const (
	sidebarWidth          = 20
	sidebarCollapsedWidth = 5
)

// SidebarItem is one navigation entry.
type SidebarItem struct {
	Key   string
	Title string
	Icon  string
}

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int

	// SidebarOpen and SidebarCollapsed mirror the persisted session flags.
	SidebarOpen      bool
	SidebarCollapsed bool
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// WithSidebar returns a copy of l with the sidebar flags set.
func (l Layout) WithSidebar(open, collapsed bool) Layout {
	l.SidebarOpen = open
	l.SidebarCollapsed = collapsed
	return l
}

// SidebarWidth returns the columns taken by the sidebar, border included.
func (l Layout) SidebarWidth() int {
	switch {
	case !l.SidebarOpen:
		return 0
	case l.SidebarCollapsed:
		return sidebarCollapsedWidth
	default:
		return sidebarWidth
	}
}

// ContentWidth returns the width left of the sidebar.
func (l Layout) ContentWidth() int {
	w := l.Width - l.SidebarWidth()
	if w < 0 {
		return 0
	}
	return w
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// RenderHeader renders the navbar with a title on the left and the
// user and connection indicators on the right.
func (l Layout) RenderHeader(title string, right ...string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	parts := make([]string, 0, len(right))
	for _, r := range right {
		if r != "" {
			parts = append(parts, r)
		}
	}
	rightRendered := lipgloss.JoinHorizontal(lipgloss.Top, parts...)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(rightRendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.HeaderStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		rightRendered,
	)
}

// RenderSidebar renders the navigation list. Collapsed sidebars show
// icons only.
func (l Layout) RenderSidebar(items []SidebarItem, active int) string {
	if !l.SidebarOpen {
		return ""
	}

	var b strings.Builder
	for i, item := range items {
		label := item.Icon + " " + item.Title
		if l.SidebarCollapsed {
			label = item.Icon
		}
		if i == active {
			b.WriteString(theme.SelectedItemStyle.Render(label))
		} else {
			b.WriteString(theme.ListItemStyle.Render(label))
		}
		b.WriteString("\n")
	}
	if !l.SidebarCollapsed {
		b.WriteString("\n")
		for _, item := range items {
			b.WriteString(theme.DimmedStyle.Render(item.Key + " " + item.Title))
			b.WriteString("\n")
		}
	}

	return theme.SidebarStyle.
		Width(l.SidebarWidth() - 1).
		Height(l.ContentHeight()).
		Render(b.String())
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.StatusBarStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, the sidebar and content row, and the status bar.
func (l Layout) RenderWithFrame(
	header string,
	sidebar string,
	content string,
	statusBar string,
) string {
	body := content
	if sidebar != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content)
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		body,
		statusBar,
	)
}
