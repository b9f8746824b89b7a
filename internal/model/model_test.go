// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"context"
	"strings"
	"testing"
)

func TestTitleDerivedFromFirstUserMessage(t *testing.T) {
	c := NewConversation()

	c.AddMessage(NewSystemMessage("notice"))
	if c.Title != "" {
		t.Errorf("system message should not set title, got %q", c.Title)
	}

	c.AddMessage(NewUserMessage("How do I sort a slice in Go?"))
	if c.Title != "How do I sort a slice in Go?" {
		t.Errorf("title = %q", c.Title)
	}

	// Title never changes once set.
	c.AddMessage(NewUserMessage("A completely different question"))
	if c.Title != "How do I sort a slice in Go?" {
		t.Errorf("title was overwritten: %q", c.Title)
	}
}

func TestTitleTruncation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"short", "short title", "short title"},
		{"exactly 30", strings.Repeat("a", 30), strings.Repeat("a", 30)},
		{"31 runes", strings.Repeat("a", 31), strings.Repeat("a", 30) + "..."},
		{"unicode counted by runes", strings.Repeat("й", 31), strings.Repeat("й", 30) + "..."},
		{"newlines collapsed", "first line\nsecond line", "first line second line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConversation()
			c.AddMessage(NewUserMessage(tt.content))
			if c.Title != tt.want {
				t.Errorf("title = %q, want %q", c.Title, tt.want)
			}
		})
	}
}

func TestStreamingTailLifecycle(t *testing.T) {
	c := NewConversation()
	c.AddMessage(NewUserMessage("hello"))

	gen := c.BeginStream(func() {})
	if !c.IsStreaming() {
		t.Fatal("conversation should be streaming")
	}
	if !c.AcceptsEvents(gen) {
		t.Fatal("current generation should be accepted")
	}
	if c.AcceptsEvents(gen - 1) {
		t.Error("stale generation should be rejected")
	}

	c.AppendToLast("Hel")
	c.AppendToLast("lo!")
	c.EndStream(gen)

	if c.IsStreaming() {
		t.Error("conversation should not be streaming after EndStream")
	}
	last := c.Messages[len(c.Messages)-1]
	if last.Content != "Hello!" || last.Streaming {
		t.Errorf("tail = %+v, want finalized %q", last, "Hello!")
	}
}

func TestFinalizeDropsEmptyTail(t *testing.T) {
	c := NewConversation()
	c.AddMessage(NewUserMessage("hello"))
	gen := c.BeginStream(func() {})

	// No deltas arrived before the stream ended.
	c.EndStream(gen)

	last := c.Messages[len(c.Messages)-1]
	if last.Role != RoleUser {
		t.Errorf("empty streaming tail should be removed, last = %+v", last)
	}
}

func TestCancelStreamKeepsPartialText(t *testing.T) {
	c := NewConversation()
	ctx, cancel := context.WithCancel(context.Background())
	gen := c.BeginStream(cancel)

	c.AppendToLast("partial reply")
	if !c.CancelStream() {
		t.Fatal("CancelStream should report an active session")
	}
	if ctx.Err() == nil {
		t.Error("cancel function was not invoked")
	}
	if c.AcceptsEvents(gen) {
		t.Error("events for the cancelled generation must be dropped")
	}

	last := c.Messages[len(c.Messages)-1]
	if last.Content != "partial reply" || last.Streaming {
		t.Errorf("partial text should be kept finalized, got %+v", last)
	}

	if c.CancelStream() {
		t.Error("second CancelStream should report nothing in flight")
	}
}

func TestHistoryExcludesSystemAndStreamingTail(t *testing.T) {
	c := NewConversation()
	c.AddMessage(NewUserMessage("q1"))
	c.AddMessage(NewAssistantMessage("a1"))
	c.AddMessage(NewSystemMessage("request cancelled"))
	c.AddMessage(NewUserMessage("q2"))
	c.BeginStream(func() {})
	c.AppendToLast("in-flight")

	hist := c.History()
	if len(hist) != 3 {
		t.Fatalf("history length = %d, want 3", len(hist))
	}
	for _, m := range hist {
		if m.IsSystem() || m.Streaming {
			t.Errorf("history contains excluded message: %+v", m)
		}
	}
}

func TestStoreNeverEmpty(t *testing.T) {
	s := NewStore()
	if s.Count() != 1 {
		t.Fatalf("new store count = %d, want 1", s.Count())
	}

	firstID := s.Active().ID
	s.Active().AddMessage(NewUserMessage("hello"))
	s.CloseActive()

	if s.Count() != 1 {
		t.Fatalf("count after closing last tab = %d, want 1", s.Count())
	}
	if s.Active().ID == firstID {
		t.Error("closing the last tab should produce a fresh conversation")
	}
	if len(s.Active().Messages) != 0 {
		t.Error("replacement conversation should be empty")
	}
}

func TestStoreCloseClampsActiveIndex(t *testing.T) {
	s := NewStore()
	s.New()
	s.New() // three tabs, active = 2

	s.CloseActive()
	if got := s.ActiveIndex(); got != 1 {
		t.Errorf("active index = %d, want 1", got)
	}
	if s.Count() != 2 {
		t.Errorf("count = %d, want 2", s.Count())
	}
}

func TestStoreCloseCancelsStream(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	s.Active().BeginStream(cancel)

	s.CloseActive()
	if ctx.Err() == nil {
		t.Error("closing a tab should cancel its in-flight stream")
	}
}

func TestStoreTabNavigationWraps(t *testing.T) {
	s := NewStore()
	s.New()
	s.New() // active = 2

	s.Next()
	if got := s.ActiveIndex(); got != 0 {
		t.Errorf("Next from last tab = %d, want wrap to 0", got)
	}
	s.Prev()
	if got := s.ActiveIndex(); got != 2 {
		t.Errorf("Prev from first tab = %d, want wrap to 2", got)
	}
}

func TestStoreByID(t *testing.T) {
	s := NewStore()
	first := s.Active()
	second := s.New()

	if got := s.ByID(first.ID); got != first {
		t.Error("ByID should find the first conversation")
	}
	if got := s.ByID(second.ID); got != second {
		t.Error("ByID should find the second conversation")
	}
	if got := s.ByID("missing"); got != nil {
		t.Error("ByID on unknown ID should return nil")
	}
}

func TestScrolling(t *testing.T) {
	c := NewConversation()
	if !c.AutoScroll {
		t.Error("new conversation should auto-follow")
	}

	c.ScrollUp(5)
	if c.ScrollOffset != 0 {
		t.Errorf("offset clamped to 0, got %d", c.ScrollOffset)
	}
	if c.AutoScroll {
		t.Error("scrolling up should disable auto-follow")
	}

	c.ScrollDown(100, 40)
	if c.ScrollOffset != 40 {
		t.Errorf("offset clamped to max, got %d", c.ScrollOffset)
	}
	if !c.AutoScroll {
		t.Error("reaching the bottom should re-enable auto-follow")
	}

	c.ScrollToTop()
	if c.ScrollOffset != 0 || c.AutoScroll {
		t.Errorf("after ScrollToTop: offset=%d auto=%v", c.ScrollOffset, c.AutoScroll)
	}

	c.ScrollToBottom(33)
	if c.ScrollOffset != 33 || !c.AutoScroll {
		t.Errorf("after ScrollToBottom: offset=%d auto=%v", c.ScrollOffset, c.AutoScroll)
	}
}

func TestStoreOpenReplacesLoneEmptyTab(t *testing.T) {
	s := NewStore()
	restored := NewConversation()
	restored.AddMessage(NewUserMessage("restored"))

	s.Open(restored)
	if s.Count() != 1 {
		t.Fatalf("count = %d, want 1", s.Count())
	}
	if s.Active() != restored {
		t.Error("restored conversation should be active")
	}

	// With real tabs open, Open adds instead of replacing.
	other := NewConversation()
	other.AddMessage(NewUserMessage("more"))
	s.Open(other)
	if s.Count() != 2 {
		t.Fatalf("count = %d, want 2", s.Count())
	}
	if s.Active() != other {
		t.Error("opened conversation should be active")
	}
}
