package analytics

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/adsdash/internal/dashboard"
	"github.com/nhle/adsdash/internal/keys"
	"github.com/nhle/adsdash/internal/model"
)

func testRows() []dashboard.Row {
	return []dashboard.Row{
		{
			Customer: model.Customer{GACustomerID: 111, GACustomerName: "Acme", GACurrentBudget: 500},
			Metrics:  &model.CustomerData{CustomerID: "111", Spend: 300, Clicks: 10},
		},
		{
			Customer: model.Customer{GACustomerID: 222, GACustomerName: "Globex", GACurrentBudget: 250},
			Metrics:  &model.CustomerData{CustomerID: "222", Spend: 100, Clicks: 90},
		},
		{Customer: model.Customer{GACustomerID: 333, GACustomerName: "Initech", GACurrentBudget: 50}},
	}
}

func TestViewShowsTotalsAndShares(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 40)
	m.SetRows(testRows())

	out := m.View()
	assert.Contains(t, out, "$800.00")
	assert.Contains(t, out, "$400.00")
	assert.Contains(t, out, "75.00%")
	assert.Contains(t, out, "Spend per customer (top 2)")
}

func TestEmptyView(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 40)
	m.SetRows(nil)
	assert.Contains(t, m.View(), "No metrics yet")
}

func TestTabSwitchesMetric(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 40)
	m.SetRows(testRows())

	rows := m.chartRows()
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme", rows[0].Customer.GACustomerName)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, metricClicks, m.metric)
	assert.Equal(t, "Globex", m.chartRows()[0].Customer.GACustomerName)
	assert.Contains(t, m.View(), "Clicks per customer")
}

func TestEscCloses(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 120, 40)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Acme", truncate("Acme", 10))
	assert.Equal(t, "Glo…", truncate("Globex", 4))
}
