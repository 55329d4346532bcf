// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/cola-tui/internal/session"
	"github.com/jeranaias/cola-tui/internal/ui/styles"
	"github.com/jeranaias/cola-tui/internal/util"
	"github.com/jeranaias/cola-tui/internal/view"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading…"
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		m.viewport.View(),
		m.renderInput(),
	)
	body := content
	if sw := m.theme.SidebarWidth(); sw > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(sw, m.height-1), content)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.renderStatusBar())
}

// =============================================================================
// MESSAGES
// =============================================================================

func (m *Model) renderMessages(width int) string {
	if width <= 0 {
		width = 80
	}
	wrap := lipgloss.NewStyle().Width(width - 2)

	var b strings.Builder
	for _, n := range m.screen.Tree.Messages.Children() {
		switch n.Kind {
		case view.KindPlaceholder:
			b.WriteString(m.theme.Placeholder.Render(wrap.Render(n.Body)))
		case view.KindUser:
			b.WriteString(m.theme.UserStatus.Render(n.Status))
			b.WriteString("\n")
			b.WriteString(m.theme.UserBody.Render(wrap.Render(n.Body)))
		case view.KindAssistant:
			b.WriteString(m.theme.AssistantStatus.Render(n.Status))
			if n.Body != "" {
				b.WriteString("\n")
				b.WriteString(n.Body)
			}
			if n.Err != "" {
				b.WriteString("\n")
				b.WriteString(m.theme.ErrorLine.Render(wrap.Render(styles.StatusIndicators.Error + " " + n.Err)))
			}
		}
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderTitle() string {
	width := m.width - m.theme.SidebarWidth()
	title := m.screen.Title
	if title == "" {
		title = "New conversation"
	}
	return m.theme.Header.Width(width).Render(util.Truncate(title, width-2))
}

func (m *Model) renderInput() string {
	if m.prompting {
		return m.theme.Input.Render(m.prompt.View())
	}
	style := m.theme.Input
	if !m.screen.InputEnabled || m.focus != focusInput {
		style = m.theme.InputDisabled
	}
	return style.Render(m.input.View())
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m *Model) renderSidebar(width, height int) string {
	threadsHeight := height / 2
	docsHeight := height - threadsHeight
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderThreads(width, threadsHeight),
		m.renderDocuments(width, docsHeight),
	)
}

func (m *Model) pane(focused bool, width, height int) lipgloss.Style {
	style := m.theme.Pane
	if focused {
		style = m.theme.PaneFocused
	}
	// borders take two cells each way
	return style.Width(width - 2).Height(height - 2)
}

func (m *Model) renderThreads(width, height int) string {
	inner := width - 4
	lines := []string{m.theme.PaneTitle.Render("Threads")}

	switch {
	case m.screen.ThreadsErr != nil:
		lines = append(lines, m.theme.ErrorLine.Render(util.Truncate("Failed to load threads", inner)))
	case len(m.screen.Threads) == 0:
		lines = append(lines, m.theme.ListMeta.Render("(none yet)"))
	}

	rows := height - 3
	start := scrollStart(m.threadCursor, len(m.screen.Threads), rows)
	for i := start; i < len(m.screen.Threads) && i < start+rows; i++ {
		t := m.screen.Threads[i]
		marker := "  "
		style := m.theme.ListItem
		if t.ID == m.screen.Selected {
			marker = "● "
			style = m.theme.ListSelected
		}
		if m.sess.State.Streams.Get(t.ID) != nil {
			marker = "~ "
		}
		line := style.Render(marker + util.Truncate(m.threadLabel(t), inner-2))
		if m.focus == focusThreads && i == m.threadCursor {
			line = m.theme.ListCursor.Render(util.PadRight(marker+util.Truncate(m.threadLabel(t), inner-2), inner))
		}
		lines = append(lines, line)
	}
	return m.pane(m.focus == focusThreads, width, height).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderDocuments(width, height int) string {
	inner := width - 4
	lines := []string{m.theme.PaneTitle.Render("Documents")}

	switch {
	case m.screen.DocumentsErr != nil:
		lines = append(lines, m.theme.ErrorLine.Render("Failed to load documents"))
	case len(m.screen.Documents) == 0:
		lines = append(lines, m.theme.ListMeta.Render("(no documents)"))
	}

	for i, d := range m.screen.Documents {
		label := util.Truncate(fmt.Sprintf("%s (%d)", d.Filename, d.SegmentCount), inner)
		line := m.theme.ListItem.Render(label)
		if m.focus == focusDocuments && i == m.docCursor {
			line = m.theme.ListCursor.Render(util.PadRight(label, inner))
		}
		lines = append(lines, line)
	}

	if m.opts.ShowSegments {
		lines = append(lines, "", m.theme.PaneTitle.Render("Segments"))
		lines = append(lines, m.segmentLines(inner)...)
	}

	maxLines := height - 2
	if len(lines) > maxLines && maxLines > 0 {
		lines = lines[:maxLines]
	}
	return m.pane(m.focus == focusDocuments, width, height).Render(strings.Join(lines, "\n"))
}

func (m *Model) segmentLines(inner int) []string {
	switch {
	case m.screen.SegmentsErr != nil:
		return []string{m.theme.ErrorLine.Render("Failed to load segments")}
	case m.screen.SegmentDoc.IsZero():
		return []string{m.theme.ListMeta.Render("Select a document to preview its segments.")}
	case len(m.screen.Segments) == 0:
		return []string{m.theme.ListMeta.Render("(no segments)")}
	}
	var out []string
	for _, s := range m.screen.Segments {
		out = append(out,
			m.theme.ListMeta.Render(fmt.Sprintf("#%d", s.Index)),
			util.Truncate(util.FirstLine(s.Preview), inner),
		)
	}
	return out
}

// scrollStart keeps cursor inside a window of rows lines.
func scrollStart(cursor, total, rows int) int {
	if rows <= 0 || total <= rows || cursor < rows {
		return 0
	}
	start := cursor - rows + 1
	if start > total-rows {
		start = total - rows
	}
	return start
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m *Model) renderStatusBar() string {
	bar := m.theme.StatusBar.Width(m.width)

	if m.confirm != nil {
		return bar.Render(m.theme.Prompt.Render(m.confirm.text))
	}

	var left string
	if m.sess.Controller.Busy() {
		left = m.spinner.View() + " generating… (esc to stop)  "
	}
	if n, ok := m.screen.LastNotice(); ok {
		switch n.Level {
		case session.NoticeError:
			left += styles.RenderError(n.Text)
		case session.NoticeWarn:
			left += styles.RenderWarning(n.Text)
		default:
			left += styles.RenderInfo(n.Text)
		}
	}

	var help []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		help = append(help, m.theme.StatusKey.Render(h.Key)+" "+h.Desc)
	}
	right := strings.Join(help, " · ")

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return bar.MaxWidth(m.width).Render(left)
	}
	return bar.Render(left + strings.Repeat(" ", gap) + right)
}
