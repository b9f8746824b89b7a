// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Store owns the open conversations and the active tab.
//
// Invariants:
//   - the store always holds at least one conversation
//   - the active index is always a valid position
//
// Closing the last conversation replaces it with a fresh empty one rather
// than leaving the store empty.
type Store struct {
	conversations []*Conversation
	active        int
}

// NewStore creates a store holding one fresh conversation.
func NewStore() *Store {
	return &Store{conversations: []*Conversation{NewConversation()}}
}

// Active returns the conversation in the active tab.
func (s *Store) Active() *Conversation {
	return s.conversations[s.active]
}

// ActiveIndex returns the position of the active tab.
func (s *Store) ActiveIndex() int {
	return s.active
}

// Count returns the number of open conversations.
func (s *Store) Count() int {
	return len(s.conversations)
}

// All returns the open conversations in tab order.
func (s *Store) All() []*Conversation {
	return s.conversations
}

// ByID returns the conversation with the given ID, or nil.
// Stream events are routed through here: delivery follows conversation
// identity, never the active tab.
func (s *Store) ByID(id string) *Conversation {
	for _, c := range s.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// New opens a fresh conversation and makes it active.
func (s *Store) New() *Conversation {
	c := NewConversation()
	s.conversations = append(s.conversations, c)
	s.active = len(s.conversations) - 1
	return c
}

// Add appends an existing conversation (a loaded one) and makes it active.
func (s *Store) Add(c *Conversation) {
	s.conversations = append(s.conversations, c)
	s.active = len(s.conversations) - 1
}

// Open adds a restored conversation and makes it active. A lone empty
// conversation left over from startup is replaced instead of kept as a tab.
func (s *Store) Open(c *Conversation) {
	if len(s.conversations) == 1 && len(s.conversations[0].Messages) == 0 {
		s.conversations[0] = c
		s.active = 0
		return
	}
	s.Add(c)
}

// CloseActive closes the active tab. Any in-flight stream on the closed
// conversation is cancelled. When the last tab is closed, a fresh empty
// conversation takes its place.
func (s *Store) CloseActive() {
	closed := s.conversations[s.active]
	closed.CancelStream()

	if len(s.conversations) == 1 {
		s.conversations[0] = NewConversation()
		s.active = 0
		return
	}

	s.conversations = append(s.conversations[:s.active], s.conversations[s.active+1:]...)
	if s.active >= len(s.conversations) {
		s.active = len(s.conversations) - 1
	}
}

// Next switches to the following tab, wrapping at the end.
func (s *Store) Next() {
	s.active = (s.active + 1) % len(s.conversations)
}

// Prev switches to the preceding tab, wrapping at the start.
func (s *Store) Prev() {
	s.active = (s.active - 1 + len(s.conversations)) % len(s.conversations)
}
