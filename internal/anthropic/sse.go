// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package anthropic

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventKind classifies an event produced by the SSE parser.
type EventKind int

const (
	// KindTextDelta carries a fragment of assistant text.
	KindTextDelta EventKind = iota

	// KindDone marks the logical end of the response.
	KindDone

	// KindParseError reports a malformed data line. The stream continues.
	KindParseError
)

// Event is a single parsed stream event.
type Event struct {
	Kind EventKind
	Text string // Delta text for KindTextDelta
	Line string // Offending line for KindParseError
	Err  error  // Decode error for KindParseError
}

// sseEvent mirrors the JSON payload of an Anthropic stream event.
// Only the fields needed to extract text deltas are decoded.
type sseEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// SSEParser incrementally decodes an Anthropic server-sent event stream.
//
// Feed accepts raw bytes in arbitrary chunk sizes: a chunk may split a line,
// a UTF-8 sequence, or an event mid-way, and the parser buffers the partial
// tail until the rest arrives. The events produced are identical no matter
// how the byte stream is sliced.
//
// The parser performs no I/O and holds no references to the network layer,
// which keeps it directly testable against byte fixtures.
type SSEParser struct {
	// UNICODE: Buffering raw bytes (not decoded strings) keeps multi-byte
	// sequences split across chunks intact until a full line arrives.
	buf       []byte
	eventName string
	done      bool
}

// NewSSEParser creates a parser ready to receive the first chunk.
func NewSSEParser() *SSEParser {
	return &SSEParser{}
}

// Done reports whether a message_stop event has been seen.
// After Done returns true, further Feed calls produce no events.
func (p *SSEParser) Done() bool {
	return p.done
}

// Feed appends a chunk of raw bytes and returns the events completed by it,
// in stream order. A nil or empty chunk is a no-op.
func (p *SSEParser) Feed(chunk []byte) []Event {
	if p.done || len(chunk) == 0 {
		return nil
	}

	p.buf = append(p.buf, chunk...)

	var events []Event
	for {
		idx := bytes.IndexByte(p.buf, '\n')
		if idx < 0 {
			break
		}
		line := p.buf[:idx]
		p.buf = p.buf[idx+1:]

		// Tolerate CRLF line endings.
		line = bytes.TrimSuffix(line, []byte{'\r'})

		ev, ok := p.processLine(line)
		if ok {
			events = append(events, ev)
		}
		if p.done {
			break
		}
	}
	if p.done {
		p.buf = nil
		p.eventName = ""
	}
	return events
}

// processLine handles one complete line of the stream.
func (p *SSEParser) processLine(line []byte) (Event, bool) {
	switch {
	case len(line) == 0:
		// Blank line ends an event block.
		p.eventName = ""
		return Event{}, false

	case bytes.HasPrefix(line, []byte("event:")):
		p.eventName = string(bytes.TrimSpace(line[len("event:"):]))
		return Event{}, false

	case bytes.HasPrefix(line, []byte("data:")):
		data := bytes.TrimSpace(line[len("data:"):])
		return p.processData(data)

	default:
		// Comments and unknown field names are ignored per the SSE format.
		return Event{}, false
	}
}

// processData decodes one data payload and maps it to an event.
func (p *SSEParser) processData(data []byte) (Event, bool) {
	if len(data) == 0 {
		return Event{}, false
	}

	// The recorded event name routes the payload and is consumed by its
	// data line. A data line arriving without one (some proxies strip the
	// event field) falls back to the JSON type field.
	name := p.eventName
	p.eventName = ""

	var ev sseEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		// Malformed data is reported and skipped; the stream stays usable.
		return Event{Kind: KindParseError, Line: string(data), Err: err}, true
	}
	if name == "" {
		name = ev.Type
	}

	switch name {
	case "content_block_delta":
		if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
			return Event{Kind: KindTextDelta, Text: ev.Delta.Text}, true
		}
		return Event{}, false

	case "message_stop":
		p.done = true
		return Event{Kind: KindDone}, true

	case "error":
		// In-band error events (overloaded_error and friends) are surfaced
		// the same way as malformed payloads; the read loop keeps going and
		// the server closes the stream on its side.
		return Event{
			Kind: KindParseError,
			Line: string(data),
			Err:  fmt.Errorf("stream error [%s]: %s", ev.Error.Type, ev.Error.Message),
		}, true

	default:
		// message_start, content_block_start, ping, message_delta and any
		// future event types carry no displayable text. Ignoring them keeps
		// the parser forward compatible.
		return Event{}, false
	}
}
