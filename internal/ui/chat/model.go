// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/claude-tui/internal/anthropic"
	"github.com/jeranaias/claude-tui/internal/config"
	"github.com/jeranaias/claude-tui/internal/model"
	"github.com/jeranaias/claude-tui/internal/storage"
	"github.com/jeranaias/claude-tui/internal/ui/styles"
)

// Mode is the input mode of the interface.
type Mode int

const (
	// ModeNormal handles navigation and tab management keys.
	ModeNormal Mode = iota
	// ModeInsert routes keystrokes into the input line.
	ModeInsert
	// ModeHelp shows the help overlay; any key returns to normal mode.
	ModeHelp
)

// String returns the mode label shown in the status bar.
func (m Mode) String() string {
	switch m {
	case ModeInsert:
		return "INSERT"
	case ModeHelp:
		return "HELP"
	default:
		return "NORMAL"
	}
}

// Model is the Bubble Tea model for the chat interface. It is the single
// writer over the conversation store; everything else communicates with it
// through messages.
type Model struct {
	client    *anthropic.Client
	cfg       *config.Config
	store     *model.Store
	convStore *storage.ConversationStore

	mode Mode

	keys     KeyMap
	theme    *styles.Theme
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool

	quitting bool
}

// New creates the chat model. convStore may be nil, in which case save
// operations report a notice instead of persisting.
func New(client *anthropic.Client, cfg *config.Config, convStore *storage.ConversationStore) Model {
	theme := styles.NewTheme()
	switch cfg.UI.Theme {
	case "dark":
		theme.SetBackground(true)
	case "light":
		theme.SetBackground(false)
	}

	input := textinput.New()
	input.Placeholder = "Type a message, or /help for commands"
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.PlaceholderStyle = theme.InputPlaceholder
	input.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	m := Model{
		client:    client,
		cfg:       cfg,
		store:     model.NewStore(),
		convStore: convStore,
		mode:      ModeNormal,
		keys:      DefaultKeyMap(),
		theme:     theme,
		input:     input,
		spinner:   sp,
	}
	m.store.Active().SystemPrompt = cfg.Chat.SystemPrompt
	return m
}

// Resume opens a previously saved conversation as the active tab.
func (m Model) Resume(saved *storage.SavedConversation) Model {
	m.store.Open(saved.ToConversation())
	return m
}

// Init starts the spinner tick.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// anyStreaming reports whether any open conversation has a reply in flight.
func (m *Model) anyStreaming() bool {
	for _, c := range m.store.All() {
		if c.IsStreaming() {
			return true
		}
	}
	return false
}

// rebuildRenderer recreates the markdown renderer for the current width.
// A nil renderer falls back to plain text rendering.
func (m *Model) rebuildRenderer() {
	if !m.cfg.UI.Markdown {
		m.renderer = nil
		return
	}
	width := m.width - 4
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.renderer = nil
		return
	}
	m.renderer = r
}

// notice appends a local system message to the active conversation.
func (m *Model) notice(text string) {
	m.store.Active().AddMessage(model.NewSystemMessage(text))
}

// noticeFor appends a local system message to the given conversation.
func (m *Model) noticeFor(c *model.Conversation, text string) {
	c.AddMessage(model.NewSystemMessage(text))
}
