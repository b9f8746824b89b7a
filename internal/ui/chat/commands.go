// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/claude-tui/internal/anthropic"
	"github.com/jeranaias/claude-tui/internal/model"
	"github.com/jeranaias/claude-tui/internal/storage"
	"github.com/jeranaias/claude-tui/internal/util"
)

// =============================================================================
// SUBMIT
// =============================================================================

// submit handles Enter in insert mode: slash commands run locally, anything
// else is sent to the API.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	if strings.HasPrefix(text, "/") {
		m.input.SetValue("")
		return m.runCommand(text)
	}
	return m.sendUserMessage(text)
}

// sendUserMessage appends the user message and opens a stream session.
//
// At most one session per conversation: while a reply is in flight the
// submission is rejected with a notice and the draft stays in the input so
// nothing the user typed is lost.
func (m Model) sendUserMessage(text string) (tea.Model, tea.Cmd) {
	conv := m.store.Active()

	if conv.IsStreaming() {
		m.notice("A reply is already streaming. Press Esc to cancel it first.")
		m.refreshViewport()
		return m, nil
	}
	if !m.client.IsConfigured() {
		m.notice("No API key configured. Set ANTHROPIC_API_KEY and restart, or add it to the config file.")
		m.refreshViewport()
		return m, nil
	}

	m.input.SetValue("")
	conv.AddMessage(model.NewUserMessage(text))

	// Snapshot the history before the streaming tail is appended.
	wire := wireHistory(conv)
	system := conv.SystemPrompt

	ctx, cancel := context.WithCancel(context.Background())
	gen := conv.BeginStream(cancel)

	// A successful send returns to normal mode.
	m.mode = ModeNormal
	m.input.Blur()

	conv.ScrollToBottom(m.maxScroll())
	m.refreshViewport()
	return m, m.requestCmd(ctx, conv.ID, gen, wire, system)
}

// wireHistory converts a transcript to API messages. System notices and the
// streaming tail never cross the wire.
func wireHistory(conv *model.Conversation) []anthropic.Message {
	history := conv.History()
	wire := make([]anthropic.Message, 0, len(history))
	for _, msg := range history {
		wire = append(wire, anthropic.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return wire
}

// requestCmd returns the command that performs the API request on its own
// goroutine. Results come back through the program queue; the closure
// captures no mutable model state.
func (m *Model) requestCmd(ctx context.Context, convID string, gen int, wire []anthropic.Message, system string) tea.Cmd {
	client := m.client
	streaming := m.cfg.API.Stream

	return func() tea.Msg {
		if !streaming {
			text, err := client.Messages(ctx, wire, system)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return StreamErrorMsg{ConvID: convID, Gen: gen, Err: err}
			}
			return ReplyMsg{ConvID: convID, Gen: gen, Text: text}
		}

		err := client.MessagesStream(ctx, wire, system, func(ev anthropic.Event) {
			switch ev.Kind {
			case anthropic.KindTextDelta:
				send(StreamDeltaMsg{ConvID: convID, Gen: gen, Text: ev.Text})
			case anthropic.KindDone:
				send(StreamDoneMsg{ConvID: convID, Gen: gen})
			case anthropic.KindParseError:
				// Recoverable: the line is skipped and the stream continues.
				log.Printf("stream parse error (conv %s): %v: %q", convID, ev.Err, ev.Line)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return StreamErrorMsg{ConvID: convID, Gen: gen, Err: err}
		}
		return nil
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// runCommand dispatches a slash command typed in the input line.
func (m Model) runCommand(text string) (tea.Model, tea.Cmd) {
	parts := strings.SplitN(text, " ", 2)
	cmd := strings.ToLower(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "/help":
		m.mode = ModeHelp
		m.input.Blur()
		return m, nil

	case "/model":
		if arg == "" {
			m.notice("Current model: " + m.client.GetModel())
		} else {
			m.client.SetModel(arg)
			m.notice("Model set to " + arg + " for subsequent messages.")
		}

	case "/system":
		conv := m.store.Active()
		if arg == "" {
			if conv.SystemPrompt == "" {
				m.notice("No system prompt set.")
			} else {
				// Long prompts are abbreviated in the echo; the full text
				// still applies to every request.
				m.notice("System prompt: " + util.TruncateRunes(conv.SystemPrompt, 80))
			}
		} else {
			conv.SystemPrompt = arg
			m.notice("System prompt updated for this conversation.")
		}

	case "/save":
		m.saveActive()

	case "/export":
		m.exportActive(arg)

	case "/clear":
		conv := m.store.Active()
		conv.CancelStream()
		conv.Messages = nil
		conv.Title = ""
		conv.ScrollToTop()

	default:
		m.notice("Unknown command: " + cmd + " (try /help)")
	}

	m.refreshViewport()
	return m, nil
}

// saveActive persists the active conversation.
func (m *Model) saveActive() {
	if m.convStore == nil {
		m.notice("Persistence is disabled.")
		return
	}
	conv := m.store.Active()
	if len(conv.History()) == 0 {
		m.notice("Nothing to save yet.")
		return
	}
	id, err := m.convStore.Save(storage.FromConversation(conv, m.client.GetModel()))
	if err != nil {
		log.Printf("save failed (conv %s): %v", conv.ID, err)
		m.notice("Save failed: " + err.Error())
		return
	}
	m.notice("Conversation saved (" + id + ").")
}

// exportActive writes the active conversation as a Markdown transcript.
// Without an explicit path the file lands in the working directory, named
// by the conversation ID.
func (m *Model) exportActive(path string) {
	conv := m.store.Active()
	if len(conv.History()) == 0 {
		m.notice("Nothing to export yet.")
		return
	}

	saved := storage.FromConversation(conv, m.client.GetModel())
	if saved.Title == "" {
		saved.Title = "New conversation"
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now()
	}

	if path == "" {
		id := conv.ID
		if len(id) > 8 {
			id = id[:8]
		}
		path = "claude-tui-" + id + ".md"
	}

	if err := util.AtomicWriteFile(path, []byte(saved.ExportMarkdown()), 0644); err != nil {
		log.Printf("export failed (conv %s): %v", conv.ID, err)
		m.notice("Export failed: " + err.Error())
		return
	}
	m.notice("Exported to " + path + ".")
}
