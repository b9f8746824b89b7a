// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Update is the single writer over all conversation state. Messages arrive
// in queue order, so two deltas for the same session can never race.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StreamDeltaMsg:
		return m.handleStreamDelta(msg)

	case StreamDoneMsg:
		return m.handleStreamDone(msg)

	case StreamErrorMsg:
		return m.handleStreamError(msg)

	case ReplyMsg:
		return m.handleReply(msg)

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)
	}

	return m, nil
}

// =============================================================================
// LAYOUT
// =============================================================================

const (
	tabBarHeight    = 1
	inputHeight     = 3
	statusBarHeight = 1
)

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	vpHeight := msg.Height - tabBarHeight - inputHeight - statusBarHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
	}
	m.input.Width = msg.Width - 6

	m.rebuildRenderer()
	m.refreshViewport()
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ModeInsert:
		return m.handleInsertKey(msg)
	case ModeHelp:
		// Any key dismisses the overlay; help always returns to normal mode.
		m.mode = ModeNormal
		return m, nil
	default:
		return m.handleNormalKey(msg)
	}
}

func (m Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.keys
	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit()

	case key.Matches(msg, keys.Insert):
		m.mode = ModeInsert
		return m, m.input.Focus()

	case key.Matches(msg, keys.Help):
		m.mode = ModeHelp
		return m, nil

	case key.Matches(msg, keys.Up):
		m.scrollBy(-1)
		return m, nil

	case key.Matches(msg, keys.Down):
		m.scrollBy(1)
		return m, nil

	case key.Matches(msg, keys.Top):
		m.store.Active().ScrollToTop()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, keys.Bottom):
		m.store.Active().ScrollToBottom(m.maxScroll())
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, keys.NewTab):
		conv := m.store.New()
		conv.SystemPrompt = m.cfg.Chat.SystemPrompt
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, keys.CloseTab):
		m.store.CloseActive()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, keys.PrevTab):
		m.store.Prev()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, keys.NextTab):
		m.store.Next()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, keys.Save):
		m.saveActive()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, keys.CancelReq):
		if m.store.Active().CancelStream() {
			m.notice("Request cancelled.")
			m.refreshViewport()
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleInsertKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ExitInsert):
		m.mode = ModeNormal
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	// Stop in-flight requests so their goroutines unwind promptly.
	for _, c := range m.store.All() {
		c.CancelStream()
	}
	return m, tea.Quit
}

// =============================================================================
// STREAM EVENT ROUTING
// =============================================================================

// Delivery follows conversation identity, never the active tab: a reply
// keeps flowing into its own transcript while the user browses other tabs.

func (m Model) handleStreamDelta(msg StreamDeltaMsg) (tea.Model, tea.Cmd) {
	conv := m.store.ByID(msg.ConvID)
	if conv == nil || !conv.AcceptsEvents(msg.Gen) {
		return m, nil // Stale or closed session
	}
	conv.AppendToLast(msg.Text)
	if conv == m.store.Active() {
		m.refreshViewport()
	}
	return m, nil
}

func (m Model) handleStreamDone(msg StreamDoneMsg) (tea.Model, tea.Cmd) {
	conv := m.store.ByID(msg.ConvID)
	if conv == nil || !conv.AcceptsEvents(msg.Gen) {
		return m, nil
	}
	conv.EndStream(msg.Gen)
	if conv == m.store.Active() {
		m.refreshViewport()
	}
	return m, nil
}

func (m Model) handleStreamError(msg StreamErrorMsg) (tea.Model, tea.Cmd) {
	conv := m.store.ByID(msg.ConvID)
	if conv == nil || !conv.AcceptsEvents(msg.Gen) {
		return m, nil
	}
	log.Printf("stream error (conv %s): %v", msg.ConvID, msg.Err)
	conv.EndStream(msg.Gen)
	// Failed requests are not retried; the user re-sends if they want to.
	m.noticeFor(conv, "Error: "+msg.Err.Error())
	if conv == m.store.Active() {
		m.refreshViewport()
	}
	return m, nil
}

func (m Model) handleReply(msg ReplyMsg) (tea.Model, tea.Cmd) {
	conv := m.store.ByID(msg.ConvID)
	if conv == nil || !conv.AcceptsEvents(msg.Gen) {
		return m, nil
	}
	conv.AppendToLast(msg.Text)
	conv.EndStream(msg.Gen)
	if conv == m.store.Active() {
		m.refreshViewport()
	}
	return m, nil
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	prev := m.cfg
	m.cfg = msg.Config
	m.client.SetAPIKey(msg.Config.API.Key)
	// A model picked with /model this session survives a reload; only an
	// actual edit of the model setting in the file takes effect.
	if msg.Config.API.Model != prev.API.Model {
		m.client.SetModel(msg.Config.API.Model)
	}
	switch msg.Config.UI.Theme {
	case "dark":
		m.theme.SetBackground(true)
	case "light":
		m.theme.SetBackground(false)
	}
	m.rebuildRenderer()
	m.notice("Configuration reloaded.")
	m.refreshViewport()
	return m, nil
}

// =============================================================================
// SCROLLING
// =============================================================================

// maxScroll returns the largest valid viewport offset for the current content.
func (m *Model) maxScroll() int {
	max := m.viewport.TotalLineCount() - m.viewport.Height
	if max < 0 {
		max = 0
	}
	return max
}

func (m *Model) scrollBy(n int) {
	conv := m.store.Active()
	if n < 0 {
		conv.ScrollUp(-n)
	} else {
		conv.ScrollDown(n, m.maxScroll())
	}
	m.refreshViewport()
}
