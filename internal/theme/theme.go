package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// labelPalette is cycled through by label id.
var labelPalette = []lipgloss.AdaptiveColor{
	ColorBlue, ColorGreen, ColorMagenta, ColorOrange, ColorYellow, ColorRed,
}

// HeaderStyle is used for the navbar and section headers.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps bordered content panels.
var PanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// SidebarStyle frames the navigation sidebar.
var SidebarStyle = lipgloss.NewStyle().
	Padding(1, 1).
	Border(lipgloss.NormalBorder(), false, true, false, false).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// TitleStyle is used for view titles.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	MarginBottom(1)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// ErrorStyle renders inline error text.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed).
	Bold(true)

// ToastStyle renders transient status messages.
var ToastStyle = lipgloss.NewStyle().
	Foreground(ColorYellow).
	Italic(true)

// DimmedStyle is used for secondary text.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// TaskStatusStyle returns a color-coded style for a task status.
func TaskStatusStyle(status string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch status {
	case "PENDING":
		return base.Foreground(ColorBlue)
	case "STARTED":
		return base.Foreground(ColorYellow)
	case "RETRY":
		return base.Foreground(ColorOrange)
	case "SUCCESS":
		return base.Foreground(ColorGreen)
	case "FAILURE":
		return base.Foreground(ColorRed)
	case "REVOKED":
		return base.Foreground(ColorMagenta)
	default:
		return base.Foreground(ColorGray)
	}
}

// PacingStyle colors a budget pacing percentage: under 80% or over 120%
// is flagged.
func PacingStyle(pacing float64) lipgloss.Style {
	base := lipgloss.NewStyle()
	switch {
	case pacing == 0:
		return base.Foreground(ColorGray)
	case pacing < 80:
		return base.Foreground(ColorYellow)
	case pacing > 120:
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGreen)
	}
}

// LabelStyle returns a stable color for a label id.
func LabelStyle(id int64) lipgloss.Style {
	if id < 0 {
		id = -id
	}
	c := labelPalette[id%int64(len(labelPalette))]
	return lipgloss.NewStyle().Bold(true).Foreground(c)
}

// GoogleStyle colors the navbar Google indicator.
func GoogleStyle(connected bool) lipgloss.Style {
	if connected {
		return HeaderStyle.Foreground(ColorGreen)
	}
	return HeaderStyle.Foreground(ColorYellow)
}
