package filter

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/adsdash/internal/dashboard"
	"github.com/nhle/adsdash/internal/model"
)

func TestStartPrefillsFromCurrent(t *testing.T) {
	m := New(80, 24)
	current := dashboard.Filter{LabelID: 2, Search: "acme", PageSize: 25, Page: 3}
	m.Start(current, []model.Label{{ID: 2, Label: "Retail"}})

	assert.Equal(t, "2", m.fb.labelID)
	assert.Equal(t, "acme", m.fb.search)
	assert.Equal(t, 25, m.fb.pageSize)
}

func TestResultResetsPage(t *testing.T) {
	m := New(80, 24)
	m.Start(dashboard.Filter{LabelID: 2, Search: " acme ", PageSize: 50, Page: 4}, []model.Label{{ID: 2, Label: "Retail"}})

	f := m.Result()
	assert.Equal(t, int64(2), f.LabelID)
	assert.Equal(t, "acme", f.Search)
	assert.Equal(t, 50, f.PageSize)
	assert.Zero(t, f.Page)
}

func TestResultClearKeepsPageSize(t *testing.T) {
	m := New(80, 24)
	m.Start(dashboard.Filter{LabelID: 2, Search: "acme", PageSize: 100}, []model.Label{{ID: 2, Label: "Retail"}})
	m.fb.clear = true

	f := m.Result()
	assert.False(t, f.Active())
	assert.Equal(t, 100, f.PageSize)
}

func TestInvalidPageSizeFallsBack(t *testing.T) {
	m := New(80, 24)
	m.Start(dashboard.Filter{PageSize: 7}, nil)
	assert.Equal(t, 10, m.fb.pageSize)
}

func TestEscCancels(t *testing.T) {
	m := New(80, 24)
	m.Start(dashboard.NewFilter(10), nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CancelMsg{}, cmd())
}

func TestUnknownLabelFallsBackToAll(t *testing.T) {
	m := New(80, 24)
	m.Start(dashboard.Filter{LabelID: 9, PageSize: 10}, []model.Label{{ID: 2, Label: "Retail"}})

	assert.Zero(t, m.Result().LabelID)
}
