// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations as one JSON file per conversation
// under the configured data directory. Writes are atomic (temp file, fsync,
// rename) so a crash mid-save never corrupts an existing transcript.
package storage
