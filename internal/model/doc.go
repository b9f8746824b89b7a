// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model defines the conversation domain types.
//
// A Message is one entry in a transcript with a Role (user, assistant, or
// system) and text content. Assistant messages arrive incrementally during
// streaming: AppendToLast grows the open tail message and FinalizeLast
// closes it.
//
// A Conversation owns an ordered transcript, a derived title, and per-tab
// view state. A Store owns the open conversations and the active tab, and
// maintains two invariants: the store is never empty, and the active index
// is always in range.
package model
