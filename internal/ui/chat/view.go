// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/claude-tui/internal/model"
)

// maxTabWidth caps a tab label's display cells, not its runes.
const maxTabWidth = 24

// View renders the full interface: tab bar, transcript, input, status bar,
// with the help overlay replacing the transcript in help mode.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Starting..."
	}

	var b strings.Builder
	b.WriteString(m.renderTabBar())
	b.WriteString("\n")
	if m.mode == ModeHelp {
		b.WriteString(m.renderHelp())
	} else {
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")
	b.WriteString(m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

// =============================================================================
// TAB BAR
// =============================================================================

func (m Model) renderTabBar() string {
	var tabs []string
	for i, conv := range m.store.All() {
		title := conv.Title
		if title == "" {
			title = "New conversation"
		}
		// UNICODE: Truncate by display cells so CJK titles don't overflow.
		title = runewidth.Truncate(title, maxTabWidth, "...")
		label := fmt.Sprintf("%d:%s", i+1, title)

		switch {
		case i == m.store.ActiveIndex():
			tabs = append(tabs, m.theme.TabActive.Render(label))
		case conv.IsStreaming():
			tabs = append(tabs, m.theme.TabStreaming.Render(label+" *"))
		default:
			tabs = append(tabs, m.theme.TabInactive.Render(label))
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return m.theme.TabBar.Width(m.width).Render(row)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshViewport re-renders the active transcript into the viewport and
// applies the conversation's scroll state.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	conv := m.store.Active()
	m.viewport.SetContent(m.renderConversation(conv))

	if conv.AutoScroll {
		m.viewport.GotoBottom()
		conv.ScrollOffset = m.viewport.YOffset
	} else {
		if conv.ScrollOffset > m.maxScroll() {
			conv.ScrollOffset = m.maxScroll()
		}
		m.viewport.SetYOffset(conv.ScrollOffset)
	}
}

func (m *Model) renderConversation(conv *model.Conversation) string {
	if len(conv.Messages) == 0 {
		return m.theme.StatusInfo.Render("\n  Start typing with i, or press ? for help.")
	}

	var b strings.Builder
	for i, msg := range conv.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderMessage(msg model.Message) string {
	ts := m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

	switch msg.Role {
	case model.RoleUser:
		header := m.theme.UserLabel.Render("You") + " " + ts
		return header + "\n" + m.theme.UserText.Width(m.width-2).Render(msg.Content)

	case model.RoleAssistant:
		header := m.theme.AssistantLabel.Render("Claude") + " " + ts
		body := msg.Content
		if msg.Streaming {
			// The open tail renders plain; markdown waits for the full text.
			body += " " + m.spinner.View()
		} else {
			body = m.renderMarkdown(body)
		}
		return header + "\n" + m.theme.AssistantText.Width(m.width-2).Render(body)

	default:
		return m.theme.SystemText.Width(m.width - 2).Render(msg.Content)
	}
}

// renderMarkdown renders completed assistant text, falling back to plain
// text when the renderer is unavailable or rendering fails.
func (m *Model) renderMarkdown(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// =============================================================================
// INPUT AREA
// =============================================================================

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width - 2).Render(m.input.View())
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	conv := m.store.Active()

	var mode string
	if m.mode == ModeInsert {
		mode = m.theme.ModeInsert.Render(m.mode.String())
	} else {
		mode = m.theme.ModeNormal.Render(m.mode.String())
	}

	info := fmt.Sprintf(" %s | %d messages | tab %d/%d",
		m.client.GetModel(), len(conv.Messages), m.store.ActiveIndex()+1, m.store.Count())

	var right string
	switch {
	case !m.client.IsConfigured():
		right = m.theme.StatusWarning.Render("ANTHROPIC_API_KEY not set")
	case m.anyStreaming():
		right = m.spinner.View() + m.theme.StatusInfo.Render(" streaming")
	default:
		right = m.theme.StatusInfo.Render("? help")
	}

	left := mode + m.theme.StatusInfo.Render(info)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.theme.HelpTitle.Render("Keyboard shortcuts"))
	b.WriteString("\n\n")

	for _, section := range GetHelpSections() {
		b.WriteString(m.theme.HelpTitle.Render(section.Title))
		b.WriteString("\n")
		for _, item := range section.Items {
			key := runewidth.FillRight(item.Key, 18)
			b.WriteString("  " + m.theme.HelpKey.Render(key) + m.theme.HelpDesc.Render(item.Desc))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(m.theme.HelpDesc.Render("Press any key to close."))

	box := m.theme.HelpBox.Render(b.String())
	return lipgloss.Place(m.width, m.viewport.Height, lipgloss.Center, lipgloss.Center, box)
}
