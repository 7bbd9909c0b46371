package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/adsdash/internal/dashboard"
	"github.com/nhle/adsdash/internal/keys"
	"github.com/nhle/adsdash/internal/theme"
)

// maxBars caps the number of customers charted.
const maxBars = 12

// CloseMsg signals the parent to leave the analytics view.
type CloseMsg struct{}

type metric int

const (
	metricSpend metric = iota
	metricClicks
)

func (m metric) String() string {
	if m == metricClicks {
		return "Clicks"
	}
	return "Spend"
}

// Model is the analytics view: totals, a per-customer bar chart and the
// spend share list.
type Model struct {
	keys   *keys.KeyMap
	rows   []dashboard.Row
	totals dashboard.Totals
	shares []dashboard.Share
	metric metric
	chart  barchart.Model
	width  int
	height int
}

// New creates the analytics view.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{
		keys:   k,
		chart:  barchart.New(60, 12),
		width:  width,
		height: height,
	}
}

// SetRows replaces the report rows and redraws the chart.
func (m *Model) SetRows(rows []dashboard.Row) {
	m.rows = rows
	m.totals = dashboard.Summarize(rows)
	m.shares = dashboard.SpendShares(rows)
	m.buildChart()
}

// Update handles messages for the analytics view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(k, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }
	case k.String() == "tab":
		if m.metric == metricSpend {
			m.metric = metricClicks
		} else {
			m.metric = metricSpend
		}
		m.buildChart()
	}
	return m, nil
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.buildChart()
}

// chartRows returns the customers with metrics, largest value first.
func (m Model) chartRows() []dashboard.Row {
	var out []dashboard.Row
	for _, r := range m.rows {
		if r.Metrics != nil {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return m.value(out[i]) > m.value(out[j])
	})
	if len(out) > maxBars {
		out = out[:maxBars]
	}
	return out
}

func (m Model) value(r dashboard.Row) float64 {
	if m.metric == metricClicks {
		return float64(r.Metrics.Clicks)
	}
	return r.Metrics.Spend
}

func (m *Model) buildChart() {
	chartWidth := m.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if m.height > 36 {
		chartHeight = 14
	}

	m.chart = barchart.New(chartWidth, chartHeight)

	rows := m.chartRows()
	if len(rows) == 0 {
		return
	}

	style := lipgloss.NewStyle().Foreground(theme.ColorBlue)
	if m.metric == metricClicks {
		style = lipgloss.NewStyle().Foreground(theme.ColorGreen)
	}

	labelWidth := chartWidth/len(rows) - 1
	if labelWidth < 3 {
		labelWidth = 3
	}

	bars := make([]barchart.BarData, 0, len(rows))
	for _, r := range rows {
		bars = append(bars, barchart.BarData{
			Label: truncate(r.Customer.GACustomerName, labelWidth),
			Values: []barchart.BarValue{{
				Name:  r.Customer.GACustomerName,
				Value: m.value(r),
				Style: style,
			}},
		})
	}
	m.chart.PushAll(bars)
	m.chart.Draw()
}

// View renders the analytics view.
func (m Model) View() string {
	w := m.width - 4
	if w < 20 {
		w = 20
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		theme.TitleStyle.Render("Analytics"), "  ",
		theme.DimmedStyle.Render(fmt.Sprintf("%d customers", m.totals.Customers)),
	)

	if len(m.chartRows()) == 0 {
		empty := theme.HelpStyle.Render("No metrics yet. Fetch metrics from the dashboard with 'f'.")
		return theme.PanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, header, "", m.viewTotals(), "", empty),
		)
	}

	chartTitle := theme.DimmedStyle.Render(fmt.Sprintf("%s per customer (top %d)", m.metric, len(m.chartRows())))
	nav := theme.DimmedStyle.Render("tab: spend/clicks  esc: back")

	return theme.PanelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", m.viewTotals(), "", chartTitle, m.chart.View(), "", m.viewShares(), "", nav,
		),
	)
}

func (m Model) viewTotals() string {
	t := m.totals
	cell := func(label, value string) string {
		return theme.DimmedStyle.Render(label+" ") + lipgloss.NewStyle().Bold(true).Render(value)
	}
	return strings.Join([]string{
		cell("Budget", dashboard.Currency(t.Budget)),
		cell("Spend", dashboard.Currency(t.Spend)),
		cell("Clicks", dashboard.Count(t.Clicks)),
		cell("Conversions", fmt.Sprintf("%.1f", t.Conversions)),
		cell("Avg CPC", dashboard.Currency(t.CPC())),
	}, "   ")
}

func (m Model) viewShares() string {
	if len(m.shares) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(theme.DimmedStyle.Render("Share of spend"))
	b.WriteString("\n")
	for i, s := range m.shares {
		if i == maxBars {
			b.WriteString(theme.DimmedStyle.Render(fmt.Sprintf("  and %d more", len(m.shares)-maxBars)))
			break
		}
		b.WriteString(fmt.Sprintf("  %-24s %12s %8s\n",
			truncate(s.Name, 24), dashboard.Currency(s.Spend), dashboard.Percent(s.Percent)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
