// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if cfg.API.Model == "" {
		t.Error("default model should be set")
	}
	if cfg.API.MaxTokens != 4096 {
		t.Errorf("default max_tokens = %d, want 4096", cfg.API.MaxTokens)
	}
	if !cfg.API.Stream {
		t.Error("streaming should default to on")
	}
}

func TestLoadFromPathMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if cfg.API.Model != Default().API.Model {
		t.Errorf("model = %q, want default", cfg.API.Model)
	}
}

func TestLoadFromPathParsesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[api]
model = "claude-opus-4-20250514"
max_tokens = 2000

[chat]
system_prompt = "be terse"

[ui]
theme = "light"
markdown = false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "claude-opus-4-20250514", cfg.API.Model)
	require.Equal(t, 2000, cfg.API.MaxTokens)
	require.Equal(t, "be terse", cfg.Chat.SystemPrompt)
	require.Equal(t, "light", cfg.UI.Theme)
	// Unset fields keep defaults.
	require.Equal(t, Default().API.BaseURL, cfg.API.BaseURL)
}

func TestLoadFixesInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[api]\n"), 0644))

	_, err := LoadFromPath(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm(), "insecure permissions must be fixed on load")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env-key")
	t.Setenv("CLAUDE_TUI_MODEL", "claude-haiku-4-20250514")
	t.Setenv("CLAUDE_TUI_THEME", "light")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.API.Key != "sk-ant-env-key" {
		t.Errorf("key = %q", cfg.API.Key)
	}
	if cfg.API.Model != "claude-haiku-4-20250514" {
		t.Errorf("model = %q", cfg.API.Model)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q", cfg.UI.Theme)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"bad url", func(c *Config) { c.API.BaseURL = "not a url" }, "api.base_url"},
		{"zero max_tokens", func(c *Config) { c.API.MaxTokens = 0 }, "api.max_tokens"},
		{"negative max_conversations", func(c *Config) { c.Storage.MaxConversations = -1 }, "storage.max_conversations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var errs ValidateErrors
			if !errors.As(err, &errs) {
				t.Fatalf("err type = %T", err)
			}
			if !strings.Contains(errs.Error(), tt.field) {
				t.Errorf("error %q should mention %s", errs.Error(), tt.field)
			}
		})
	}
}

func TestSaveTOMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.API.Model = "claude-opus-4-20250514"
	cfg.Chat.SystemPrompt = "roundtrip"

	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm(), "saved config must be private")

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "claude-opus-4-20250514", loaded.API.Model)
	require.Equal(t, "roundtrip", loaded.Chat.SystemPrompt)
}

func TestStringRedactsKey(t *testing.T) {
	cfg := Default()
	cfg.API.Key = "sk-ant-super-secret"
	s := cfg.String()
	if strings.Contains(s, "super-secret") {
		t.Error("String() leaks the API key")
	}
	if !strings.Contains(s, "[REDACTED]") {
		t.Error("String() should mark the key as redacted")
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[ui]\ntheme = \"dark\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	changes := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case changes <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("[ui]\ntheme = \"light\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changes:
		if cfg.UI.Theme != "light" {
			t.Errorf("reloaded theme = %q, want light", cfg.UI.Theme)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not deliver reloaded config")
	}
}

func TestWatcherSkipsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[ui]\ntheme = \"dark\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, func(cfg *Config) { changes <- cfg })
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	// Invalid theme fails validation; the callback must not fire for it.
	if err := os.WriteFile(path, []byte("[ui]\ntheme = \"neon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changes:
		t.Errorf("invalid config was delivered: theme=%q", cfg.UI.Theme)
	case <-time.After(time.Second):
		// Expected: nothing delivered.
	}
}
