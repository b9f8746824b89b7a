// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// Role identifies the author of a message.
type Role string

const (
	// RoleUser is a message typed by the user.
	RoleUser Role = "user"

	// RoleAssistant is a reply from the model.
	RoleAssistant Role = "assistant"

	// RoleSystem is a local notice shown in the transcript (errors,
	// cancellations, command feedback). System messages are never sent
	// to the API.
	RoleSystem Role = "system"
)

// Message is a single transcript entry.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time

	// Streaming marks an assistant message whose content is still being
	// appended to. Exactly zero or one message per conversation is
	// streaming, and it is always the last one.
	Streaming bool
}

// NewUserMessage creates a user message stamped with the current time.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// NewAssistantMessage creates a completed assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now()}
}

// NewSystemMessage creates a local notice message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content, Timestamp: time.Now()}
}

// newStreamingMessage creates an open assistant message to receive deltas.
func newStreamingMessage() Message {
	return Message{Role: RoleAssistant, Timestamp: time.Now(), Streaming: true}
}

// IsUser returns true for user messages.
func (m Message) IsUser() bool { return m.Role == RoleUser }

// IsAssistant returns true for assistant messages.
func (m Message) IsAssistant() bool { return m.Role == RoleAssistant }

// IsSystem returns true for local notice messages.
func (m Message) IsSystem() bool { return m.Role == RoleSystem }
