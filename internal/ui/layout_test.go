package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentWidthFollowsSidebar(t *testing.T) {
	l := NewLayout(100, 40)
	assert.Equal(t, 100, l.ContentWidth())
	assert.Equal(t, 38, l.ContentHeight())

	l = l.WithSidebar(true, false)
	assert.Equal(t, 100-sidebarWidth, l.ContentWidth())

	l = l.WithSidebar(true, true)
	assert.Equal(t, 100-sidebarCollapsedWidth, l.ContentWidth())
}

func TestRenderSidebarHiddenWhenClosed(t *testing.T) {
	l := NewLayout(80, 24)
	assert.Empty(t, l.RenderSidebar([]SidebarItem{{Key: "1", Title: "Dashboard", Icon: "D"}}, 0))
}

func TestRenderSidebarCollapsedShowsIconsOnly(t *testing.T) {
	l := NewLayout(80, 24).WithSidebar(true, true)
	out := l.RenderSidebar([]SidebarItem{{Key: "1", Title: "Dashboard", Icon: "D"}}, 0)
	assert.Contains(t, out, "D")
	assert.NotContains(t, out, "Dashboard")
}

func TestRenderHeaderIncludesParts(t *testing.T) {
	l := NewLayout(80, 24)
	out := l.RenderHeader("Ads Dashboard", "ana", "", "Google Connected")
	assert.True(t, strings.Contains(out, "Ads Dashboard"))
	assert.Contains(t, out, "ana")
	assert.Contains(t, out, "Google Connected")
}
