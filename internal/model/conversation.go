// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/jeranaias/claude-tui/internal/util"
)

// titleMaxRunes is the number of runes taken from the first user message
// when deriving a conversation title.
const titleMaxRunes = 30

// Conversation is one chat transcript plus its per-tab view state.
//
// Stream state is owned here so that event routing works by conversation
// identity, not by tab position: a reply keeps flowing into the right
// transcript even when the user switches tabs mid-stream.
type Conversation struct {
	ID           string
	Title        string
	SystemPrompt string
	Messages     []Message

	// View state for this tab.
	ScrollOffset int
	AutoScroll   bool

	// streamGen identifies the current stream session. Events stamped
	// with an older generation are stale and must be dropped.
	streamGen int
	cancel    context.CancelFunc
}

// NewConversation creates an empty conversation with a fresh ID.
func NewConversation() *Conversation {
	return &Conversation{
		ID:         uuid.NewString(),
		AutoScroll: true,
	}
}

// AddMessage appends a completed message to the transcript.
// The first user message also sets the title if one is not set yet.
func (c *Conversation) AddMessage(msg Message) {
	c.Messages = append(c.Messages, msg)
	if c.Title == "" && msg.IsUser() {
		c.Title = deriveTitle(msg.Content)
	}
}

// deriveTitle builds a tab title from message content: the first
// titleMaxRunes runes, with "..." appended when truncated.
func deriveTitle(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if util.RuneLen(content) <= titleMaxRunes {
		return content
	}
	return util.TruncateRunesNoEllipsis(content, titleMaxRunes) + "..."
}

// History returns the messages to send to the API: user and assistant
// messages in order, excluding local system notices and any open
// streaming tail.
func (c *Conversation) History() []Message {
	out := make([]Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if m.IsSystem() || m.Streaming {
			continue
		}
		out = append(out, m)
	}
	return out
}

// =============================================================================
// STREAM SESSION
// =============================================================================

// IsStreaming reports whether a reply is currently in flight.
func (c *Conversation) IsStreaming() bool {
	return c.cancel != nil
}

// BeginStream opens a stream session: it records the cancel function,
// appends an empty streaming tail message, and returns the session
// generation that incoming events must carry.
//
// At most one session per conversation may be open. Callers check
// IsStreaming first; BeginStream on a busy conversation cancels the
// previous session defensively rather than leaking its context.
func (c *Conversation) BeginStream(cancel context.CancelFunc) int {
	if c.cancel != nil {
		c.cancel()
	}
	c.streamGen++
	c.cancel = cancel
	c.Messages = append(c.Messages, newStreamingMessage())
	return c.streamGen
}

// AcceptsEvents reports whether an event stamped with gen belongs to the
// currently open session. Stale generations are silently dropped.
func (c *Conversation) AcceptsEvents(gen int) bool {
	return c.cancel != nil && gen == c.streamGen
}

// AppendToLast appends delta text to the open streaming tail.
// Without an open tail the delta is dropped.
func (c *Conversation) AppendToLast(text string) {
	if n := len(c.Messages); n > 0 && c.Messages[n-1].Streaming {
		c.Messages[n-1].Content += text
	}
}

// FinalizeLast closes the streaming tail, keeping whatever text arrived.
// A tail that received no text at all is removed instead of being kept
// as an empty assistant message.
func (c *Conversation) FinalizeLast() {
	n := len(c.Messages)
	if n == 0 || !c.Messages[n-1].Streaming {
		return
	}
	if c.Messages[n-1].Content == "" {
		c.Messages = c.Messages[:n-1]
		return
	}
	c.Messages[n-1].Streaming = false
}

// EndStream closes the session for the given generation and finalizes the
// tail. Calls for stale generations are ignored.
func (c *Conversation) EndStream(gen int) {
	if gen != c.streamGen {
		return
	}
	c.cancel = nil
	c.FinalizeLast()
}

// CancelStream cancels the in-flight session, finalizes any partial text,
// and bumps the generation so late events from the dying goroutine are
// dropped. Returns false if nothing was in flight.
func (c *Conversation) CancelStream() bool {
	if c.cancel == nil {
		return false
	}
	c.cancel()
	c.cancel = nil
	c.streamGen++
	c.FinalizeLast()
	return true
}

// =============================================================================
// SCROLLING
// =============================================================================

// ScrollUp moves the view up by n lines and disables auto-follow.
func (c *Conversation) ScrollUp(n int) {
	c.AutoScroll = false
	c.ScrollOffset -= n
	if c.ScrollOffset < 0 {
		c.ScrollOffset = 0
	}
}

// ScrollDown moves the view down by n lines, clamped to max.
// Reaching the bottom re-enables auto-follow.
func (c *Conversation) ScrollDown(n, max int) {
	c.ScrollOffset += n
	if c.ScrollOffset >= max {
		c.ScrollOffset = max
		c.AutoScroll = true
	}
}

// ScrollToTop jumps to the start of the transcript.
func (c *Conversation) ScrollToTop() {
	c.AutoScroll = false
	c.ScrollOffset = 0
}

// ScrollToBottom jumps to the end and re-enables auto-follow.
func (c *Conversation) ScrollToBottom(max int) {
	c.AutoScroll = true
	c.ScrollOffset = max
}
