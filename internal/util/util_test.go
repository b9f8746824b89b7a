// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"truncated with ellipsis", "hello world", 8, "hello..."},
		{"zero max", "hello", 0, ""},
		{"negative max", "hello", -1, ""},
		{"tiny max no ellipsis", "hello", 2, "he"},
		{"unicode safe", "héllo wörld", 8, "héllo..."},
		{"cjk safe", "こんにちは世界です", 6, "こんに..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.input, tt.maxRunes)
			if got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestTruncateRunesNoEllipsis(t *testing.T) {
	if got := TruncateRunesNoEllipsis("hello world", 5); got != "hello" {
		t.Errorf("expected 'hello', got %q", got)
	}
	if got := TruncateRunesNoEllipsis("日本語テキスト", 3); got != "日本語" {
		t.Errorf("expected 3 runes, got %q", got)
	}
	if got := TruncateRunesNoEllipsis("short", 10); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
}

func TestRuneLen(t *testing.T) {
	if got := RuneLen("hello"); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
	// 4 runes, 12 bytes
	if got := RuneLen("日本語だ"); got != 4 {
		t.Errorf("expected 4, got %d", got)
	}
}

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "test.json")

	data := []byte(`{"key": "value"}`)
	if err := AtomicWriteFile(path, data, 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	read, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written file: %v", err)
	}
	if string(read) != string(data) {
		t.Errorf("content mismatch: got %q, want %q", read, data)
	}

	// Overwrite should replace content atomically
	data2 := []byte(`{"key": "other"}`)
	if err := AtomicWriteFile(path, data2, 0644); err != nil {
		t.Fatalf("AtomicWriteFile overwrite failed: %v", err)
	}
	read, _ = os.ReadFile(path)
	if string(read) != string(data2) {
		t.Errorf("overwrite content mismatch: got %q", read)
	}

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 file in dir, found %d", len(entries))
	}
}
