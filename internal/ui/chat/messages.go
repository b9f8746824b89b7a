// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/claude-tui/internal/config"
)

// =============================================================================
// STREAM MESSAGES
// =============================================================================

// Stream messages are produced by streaming goroutines and consumed by the
// Update loop. Every message carries the conversation ID and the session
// generation so Update can route it to the right transcript and discard
// events from cancelled sessions.

// StreamDeltaMsg delivers a fragment of assistant text.
type StreamDeltaMsg struct {
	ConvID string
	Gen    int
	Text   string
}

// StreamDoneMsg signals the logical end of a reply.
type StreamDoneMsg struct {
	ConvID string
	Gen    int
}

// StreamErrorMsg signals a failed request or broken stream.
type StreamErrorMsg struct {
	ConvID string
	Gen    int
	Err    error
}

// ReplyMsg delivers a complete non-streaming reply.
type ReplyMsg struct {
	ConvID string
	Gen    int
	Text   string
}

// ConfigReloadedMsg carries a freshly reloaded configuration.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// =============================================================================
// PROGRAM REFERENCE
// =============================================================================

var (
	programMu  sync.Mutex
	programRef *tea.Program
)

// SetProgram registers the running program so background goroutines can
// deliver messages into its queue. Called once after tea.NewProgram.
func SetProgram(p *tea.Program) {
	programMu.Lock()
	defer programMu.Unlock()
	programRef = p
}

// send delivers a message onto the program's queue. Program.Send is safe for
// concurrent use and preserves per-goroutine ordering, which gives each
// stream session in-order delivery of its deltas.
//
// Declared as a variable so tests can intercept delivery without a running
// program.
var send = func(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}
