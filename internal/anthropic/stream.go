// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// streamReadSize is the network read buffer for streaming responses.
const streamReadSize = 4096

// MessagesStream performs a streaming request and invokes onEvent for each
// parsed event in stream order. The callback runs on the calling goroutine.
//
// Cancellation is cooperative: the context is checked at every chunk
// boundary, and once cancellation is observed no further events are
// delivered. The function returns ctx.Err() in that case.
//
// A stream that ends without a message_stop event (server closed the
// connection early) still delivers a final KindDone event so callers can
// finalize whatever text arrived.
//
// Failures are never retried automatically.
func (c *Client) MessagesStream(ctx context.Context, messages []Message, system string, onEvent func(Event)) error {
	rc := c.snapshot()
	if rc.apiKey == "" {
		return ErrNotConfigured
	}

	reqBody := rc.buildRequest(messages, system, true)
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rc.baseURL+"/v1/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	rc.setHeaders(req)
	req.Header.Set("accept", "text/event-stream")
	c.logRequest(req)

	start := time.Now()
	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, readErr := readResponse(resp)
		if readErr != nil {
			return fmt.Errorf("API error (HTTP %d)", resp.StatusCode)
		}
		return c.handleErrorResponse(resp.StatusCode, body)
	}

	return c.consumeStream(ctx, resp.Body, onEvent)
}

// consumeStream reads the response body chunk by chunk, feeding the parser
// and dispatching events until the stream ends or the context is cancelled.
func (c *Client) consumeStream(ctx context.Context, body io.Reader, onEvent func(Event)) error {
	parser := NewSSEParser()
	buf := make([]byte, streamReadSize)

	for {
		// Cancellation is observed at chunk boundaries. Once seen, nothing
		// more is delivered - not even events already buffered in the chunk.
		if err := ctx.Err(); err != nil {
			return err
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			for _, ev := range parser.Feed(buf[:n]) {
				if err := ctx.Err(); err != nil {
					return err
				}
				onEvent(ev)
			}
			if parser.Done() {
				return nil
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				if err := ctx.Err(); err != nil {
					return err
				}
				// Server closed without message_stop. Synthesize completion
				// so partial text is still finalized.
				if !parser.Done() {
					onEvent(Event{Kind: KindDone})
				}
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("stream read failed: %w", readErr)
		}
	}
}
