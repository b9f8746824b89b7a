// claude-tui - A terminal chat client for the Anthropic Messages API.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/claude-tui/internal/anthropic"
	"github.com/jeranaias/claude-tui/internal/config"
	"github.com/jeranaias/claude-tui/internal/storage"
	"github.com/jeranaias/claude-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (default ~/.claude-tui/config.toml)")
	model := flag.String("model", "", "override the configured model")
	resume := flag.String("resume", "", "resume a saved conversation by id, or \"last\" for the most recent")
	flag.Parse()

	if *showVersion {
		fmt.Printf("claude-tui %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*configPath, *model, *resume); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, modelOverride, resume string) error {
	cfg, cfgFile, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if modelOverride != "" {
		cfg.API.Model = modelOverride
	}

	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// The terminal is owned by the TUI, so debug output goes to a file.
	logClose, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logClose()

	log.Printf("claude-tui %s starting (config: %s)", Version, cfgFile)

	client := anthropic.NewClient(cfg.API.Key).
		WithBaseURL(cfg.API.BaseURL).
		WithMaxTokens(cfg.API.MaxTokens)
	client.SetModel(cfg.API.Model)

	convStore, err := newConversationStore(cfg)
	if err != nil {
		// Persistence is optional; the chat still works without it.
		log.Printf("conversation store unavailable: %v", err)
	}

	m := chat.New(client, cfg, convStore)
	if resume != "" {
		saved, err := loadResume(convStore, resume)
		if err != nil {
			return fmt.Errorf("resuming conversation: %w", err)
		}
		m = m.Resume(saved)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	chat.SetProgram(p)

	// Config edits on disk are picked up live and forwarded to the UI.
	watcher, err := config.NewWatcher(cfgFile, func(updated *config.Config) {
		p.Send(chat.ConfigReloadedMsg{Config: updated})
	})
	if err != nil {
		log.Printf("config watcher disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// loadConfig resolves the config file path and loads it, returning the
// effective configuration and the path that was used.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		resolved, err := config.ConfigPath()
		if err != nil {
			return nil, "", err
		}
		path = resolved
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func setupLogging(cfg *config.Config) (func(), error) {
	path, err := cfg.LogFilePath()
	if err != nil {
		return nil, err
	}
	// SECURITY: the log can contain message text, keep it private.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return func() { f.Close() }, nil
}

// loadResume resolves "-resume" to a saved conversation. "last" picks the
// most recently updated one.
func loadResume(store *storage.ConversationStore, id string) (*storage.SavedConversation, error) {
	if store == nil {
		return nil, fmt.Errorf("conversation store unavailable")
	}
	if id == "last" {
		metas, err := store.List()
		if err != nil {
			return nil, err
		}
		if len(metas) == 0 {
			return nil, fmt.Errorf("no saved conversations")
		}
		id = metas[0].ID
	}
	return store.Load(id)
}

func newConversationStore(cfg *config.Config) (*storage.ConversationStore, error) {
	dir, err := cfg.ConversationsDir()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewConversationStoreWithDir(dir)
	if err != nil {
		return nil, err
	}
	store.MaxConversations = cfg.Storage.MaxConversations
	return store, nil
}
