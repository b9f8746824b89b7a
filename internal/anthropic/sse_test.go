// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package anthropic

import (
	"strings"
	"testing"
)

func deltaEvent(text string) string {
	return "event: content_block_delta\n" +
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"` + text + `"}}` + "\n\n"
}

const stopEvent = "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n"

func collectText(events []Event) string {
	var sb strings.Builder
	for _, ev := range events {
		if ev.Kind == KindTextDelta {
			sb.WriteString(ev.Text)
		}
	}
	return sb.String()
}

func TestSSEParserBasicStream(t *testing.T) {
	stream := "event: message_start\n" +
		`data: {"type":"message_start","message":{"id":"msg_1"}}` + "\n\n" +
		deltaEvent("Hello") +
		deltaEvent(", world") +
		stopEvent

	p := NewSSEParser()
	events := p.Feed([]byte(stream))

	if got := collectText(events); got != "Hello, world" {
		t.Errorf("text = %q, want %q", got, "Hello, world")
	}
	last := events[len(events)-1]
	if last.Kind != KindDone {
		t.Errorf("last event kind = %v, want KindDone", last.Kind)
	}
	if !p.Done() {
		t.Error("parser should report done after message_stop")
	}
}

func TestSSEParserChunkBoundaryInvariance(t *testing.T) {
	stream := deltaEvent("The quick") + deltaEvent(" brown fox") + stopEvent

	// Whole stream in one chunk establishes the expected event sequence.
	whole := NewSSEParser().Feed([]byte(stream))

	// Re-parse with every possible chunk size, including one byte at a
	// time. The event sequence must be identical.
	for size := 1; size <= len(stream); size++ {
		p := NewSSEParser()
		var events []Event
		for i := 0; i < len(stream); i += size {
			end := i + size
			if end > len(stream) {
				end = len(stream)
			}
			events = append(events, p.Feed([]byte(stream[i:end]))...)
		}

		if len(events) != len(whole) {
			t.Fatalf("chunk size %d: got %d events, want %d", size, len(events), len(whole))
		}
		for i := range events {
			if events[i].Kind != whole[i].Kind || events[i].Text != whole[i].Text {
				t.Fatalf("chunk size %d: event %d = %+v, want %+v", size, i, events[i], whole[i])
			}
		}
	}
}

func TestSSEParserUTF8SplitAcrossChunks(t *testing.T) {
	stream := deltaEvent("日本語テスト") + stopEvent
	raw := []byte(stream)

	// One byte at a time guarantees every multi-byte sequence is split.
	p := NewSSEParser()
	var events []Event
	for i := range raw {
		events = append(events, p.Feed(raw[i:i+1])...)
	}

	if got := collectText(events); got != "日本語テスト" {
		t.Errorf("text = %q, want %q", got, "日本語テスト")
	}
}

func TestSSEParserMalformedDataLine(t *testing.T) {
	stream := deltaEvent("before") +
		"event: content_block_delta\ndata: {not json at all\n\n" +
		deltaEvent("after") +
		stopEvent

	p := NewSSEParser()
	events := p.Feed([]byte(stream))

	var parseErrors int
	for _, ev := range events {
		if ev.Kind == KindParseError {
			parseErrors++
			if ev.Err == nil {
				t.Error("parse error event should carry the decode error")
			}
			if ev.Line == "" {
				t.Error("parse error event should carry the offending line")
			}
		}
	}
	if parseErrors != 1 {
		t.Errorf("parse errors = %d, want 1", parseErrors)
	}

	// The stream continues past the malformed line.
	if got := collectText(events); got != "beforeafter" {
		t.Errorf("text = %q, want %q", got, "beforeafter")
	}
	if !p.Done() {
		t.Error("parser should still reach done after recovering")
	}
}

func TestSSEParserIgnoresUnknownEvents(t *testing.T) {
	stream := "event: ping\ndata: {\"type\":\"ping\"}\n\n" +
		"event: content_block_start\n" +
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}` + "\n\n" +
		"event: some_future_event\ndata: {\"type\":\"some_future_event\",\"extra\":42}\n\n" +
		deltaEvent("hi") +
		"event: message_delta\ndata: {\"type\":\"message_delta\",\"usage\":{\"output_tokens\":3}}\n\n" +
		stopEvent

	events := NewSSEParser().Feed([]byte(stream))

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2 (delta + done): %+v", len(events), events)
	}
	if events[0].Kind != KindTextDelta || events[0].Text != "hi" {
		t.Errorf("event 0 = %+v, want text delta %q", events[0], "hi")
	}
	if events[1].Kind != KindDone {
		t.Errorf("event 1 kind = %v, want KindDone", events[1].Kind)
	}
}

func TestSSEParserFrozenAfterDone(t *testing.T) {
	p := NewSSEParser()
	p.Feed([]byte(stopEvent))
	if !p.Done() {
		t.Fatal("parser should be done")
	}

	events := p.Feed([]byte(deltaEvent("late")))
	if len(events) != 0 {
		t.Errorf("got %d events after done, want 0", len(events))
	}
}

func TestSSEParserEmptyDeltaProducesNoEvent(t *testing.T) {
	stream := "event: content_block_delta\n" +
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":""}}` + "\n\n" +
		stopEvent

	events := NewSSEParser().Feed([]byte(stream))
	if len(events) != 1 || events[0].Kind != KindDone {
		t.Errorf("events = %+v, want only KindDone", events)
	}
}

func TestSSEParserCRLFLines(t *testing.T) {
	stream := strings.ReplaceAll(deltaEvent("crlf")+stopEvent, "\n", "\r\n")

	events := NewSSEParser().Feed([]byte(stream))
	if got := collectText(events); got != "crlf" {
		t.Errorf("text = %q, want %q", got, "crlf")
	}
}

func TestSSEParserPartialLineHeldUntilComplete(t *testing.T) {
	p := NewSSEParser()

	// First half of the data line does not produce an event.
	events := p.Feed([]byte("event: content_block_delta\ndata: {\"type\":\"content_block_delta\","))
	if len(events) != 0 {
		t.Fatalf("got %d events from partial line, want 0", len(events))
	}

	events = p.Feed([]byte(`"delta":{"type":"text_delta","text":"joined"}}` + "\n\n"))
	if len(events) != 1 || events[0].Text != "joined" {
		t.Errorf("events = %+v, want single delta %q", events, "joined")
	}
}

func TestSSEParserInBandErrorEvent(t *testing.T) {
	stream := deltaEvent("partial") +
		"event: error\ndata: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"try later\"}}\n\n"

	p := NewSSEParser()
	events := p.Feed([]byte(stream))
	if len(events) != 2 {
		t.Fatalf("event count = %d, want 2", len(events))
	}
	if events[0].Kind != KindTextDelta {
		t.Errorf("events[0].Kind = %v, want text delta", events[0].Kind)
	}
	if events[1].Kind != KindParseError {
		t.Fatalf("events[1].Kind = %v, want parse error", events[1].Kind)
	}
	if !strings.Contains(events[1].Err.Error(), "overloaded_error") {
		t.Errorf("err = %v, should name the error type", events[1].Err)
	}
	if p.Done() {
		t.Error("an error event must not freeze the parser")
	}
}

func TestSSEParserDispatchesOnEventName(t *testing.T) {
	// The event: line alone names the payload; the JSON type field may be
	// absent entirely.
	stream := "event: content_block_delta\n" +
		`data: {"delta":{"type":"text_delta","text":"named"}}` + "\n\n" +
		"event: message_stop\ndata: {}\n\n"

	p := NewSSEParser()
	events := p.Feed([]byte(stream))

	if got := collectText(events); got != "named" {
		t.Errorf("text = %q, want %q", got, "named")
	}
	if !p.Done() {
		t.Error("event-name dispatch should reach done on message_stop")
	}
}

func TestSSEParserFallsBackToJSONType(t *testing.T) {
	// Data-only records (no event: lines) route on the JSON type field.
	stream := `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"bare"}}` + "\n\n" +
		`data: {"type":"message_stop"}` + "\n\n"

	p := NewSSEParser()
	events := p.Feed([]byte(stream))

	if got := collectText(events); got != "bare" {
		t.Errorf("text = %q, want %q", got, "bare")
	}
	if !p.Done() {
		t.Error("type-field fallback should reach done on message_stop")
	}
}
