// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
// Normal-mode bindings are vim flavored; insert mode is plain line editing.
type KeyMap struct {
	// Normal mode
	Insert    key.Binding
	Up        key.Binding
	Down      key.Binding
	Top       key.Binding
	Bottom    key.Binding
	Quit      key.Binding
	Help      key.Binding
	NewTab    key.Binding
	CloseTab  key.Binding
	PrevTab   key.Binding
	NextTab   key.Binding
	Save      key.Binding
	CancelReq key.Binding

	// Insert mode
	Submit     key.Binding
	ExitInsert key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat interface.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Insert: key.NewBinding(
			key.WithKeys("i", "enter"),
			key.WithHelp("i/Enter", "insert mode"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "scroll down"),
		),
		Top: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("Home/g", "go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("End/G", "go to bottom"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+q"),
			key.WithHelp("q/C-q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		NewTab: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new conversation"),
		),
		CloseTab: key.NewBinding(
			key.WithKeys("ctrl+w"),
			key.WithHelp("C-w", "close conversation"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("ctrl+h"),
			key.WithHelp("C-h", "previous tab"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "next tab"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "save conversation"),
		),
		CancelReq: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "cancel streaming"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send message"),
		),
		ExitInsert: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "normal mode"),
		),
	}
}

// =============================================================================
// HELP TEXT DATA
// =============================================================================

// HelpItem is a single entry in the help overlay.
type HelpItem struct {
	Key  string
	Desc string
}

// HelpSection groups help items under a heading.
type HelpSection struct {
	Title string
	Items []HelpItem
}

// GetHelpSections returns the content of the help overlay.
func GetHelpSections() []HelpSection {
	return []HelpSection{
		{
			Title: "Normal mode",
			Items: []HelpItem{
				{"i / Enter", "Enter insert mode"},
				{"j / k", "Scroll down / up"},
				{"g / G", "Go to top / bottom"},
				{"Esc", "Cancel streaming reply"},
				{"?", "Toggle this help"},
				{"q", "Quit"},
			},
		},
		{
			Title: "Tabs",
			Items: []HelpItem{
				{"Ctrl+N", "New conversation"},
				{"Ctrl+W", "Close conversation"},
				{"Ctrl+H / Ctrl+L", "Previous / next tab"},
				{"Ctrl+S", "Save conversation"},
			},
		},
		{
			Title: "Insert mode",
			Items: []HelpItem{
				{"Enter", "Send message"},
				{"Esc", "Back to normal mode"},
			},
		},
		{
			Title: "Commands",
			Items: []HelpItem{
				{"/model <name>", "Switch model"},
				{"/system <prompt>", "Set system prompt"},
				{"/save", "Save conversation"},
				{"/export [path]", "Export transcript as Markdown"},
				{"/clear", "Clear conversation"},
				{"/help", "Toggle this help"},
			},
		},
	}
}
