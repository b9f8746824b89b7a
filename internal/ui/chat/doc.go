// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the chat interface: a modal, tabbed view over a
// conversation store with streaming replies.
//
// All conversation state is owned by the Update loop. Streaming goroutines
// never touch it; they deliver events into the Bubble Tea message queue via
// Send, and Update routes each event to its conversation by ID and session
// generation. Events for a closed or superseded session are dropped.
package chat
