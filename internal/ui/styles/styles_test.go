// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTheme_ForcedMode(t *testing.T) {
	require.True(t, NewTheme("dark").IsDark)
	require.False(t, NewTheme("light").IsDark)
}

func TestTheme_Layout(t *testing.T) {
	th := NewTheme("dark")

	th.SetSize(60, 20)
	require.Equal(t, LayoutNarrow, th.GetLayoutMode())
	require.Zero(t, th.SidebarWidth())

	th.SetSize(100, 30)
	require.Equal(t, LayoutWide, th.GetLayoutMode())
	require.Equal(t, 25, th.SidebarWidth())

	th.SetSize(400, 30)
	require.Equal(t, 40, th.SidebarWidth())
}

func TestRenderHelpersCarryIndicators(t *testing.T) {
	require.True(t, strings.Contains(RenderError("boom"), StatusIndicators.Error))
	require.True(t, strings.Contains(RenderWarning("careful"), StatusIndicators.Warning))
	require.True(t, strings.Contains(RenderSuccess("done"), "done"))
	require.True(t, strings.Contains(RenderInfo("fyi"), StatusIndicators.Info))
}
