// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package anthropic implements the client for the Anthropic Messages API.
//
// The package provides two request paths:
//
//   - Client.Messages: a non-streaming request that returns the complete
//     reply text once the full JSON body has arrived.
//   - Client.MessagesStream: a streaming request whose text/event-stream
//     body is parsed incrementally by SSEParser, delivering each text
//     delta through a callback as soon as it is read off the wire.
//
// SSEParser is a pure, push-based parser: it holds no I/O and can be fed
// byte chunks of arbitrary size and alignment, including chunks that split
// SSE lines or UTF-8 sequences mid-way. Its output is a closed set of
// events (TextDelta, Done, ParseError); unknown event names are ignored so
// that protocol additions do not break the client.
//
// Errors follow the package's sentinel taxonomy (ErrNotConfigured,
// ErrAuthFailed, ErrRateLimited, ...) and the typed APIError, all usable
// with errors.Is / errors.As. Transport failures are never retried here;
// retrying a send is a user decision made above this package.
package anthropic
