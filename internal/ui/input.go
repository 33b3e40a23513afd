package ui

import (
	uistate "github.com/atomicstack/wiggle-chat/internal/ui/state"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Compose   key.Binding
	Name      key.Binding
	Login     key.Binding
	Quit      key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
	Erase     key.Binding
	ForceQuit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Compose:   key.NewBinding(key.WithKeys(uistate.CommandCompose), key.WithHelp(uistate.CommandCompose, "compose")),
		Name:      key.NewBinding(key.WithKeys(uistate.CommandName), key.WithHelp(uistate.CommandName, "name")),
		Login:     key.NewBinding(key.WithKeys(uistate.CommandLogin), key.WithHelp(uistate.CommandLogin, "login")),
		Quit:      key.NewBinding(key.WithKeys(uistate.CommandQuit), key.WithHelp(uistate.CommandQuit, "quit")),
		Confirm:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Erase:     key.NewBinding(key.WithKeys("backspace", "ctrl+h"), key.WithHelp("⌫", "erase")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

func (k keyMap) isForceQuit(msg tea.KeyMsg) bool {
	return key.Matches(msg, k.ForceQuit)
}

// input translates a terminal key into a state machine input.
func (k keyMap) input(msg tea.KeyMsg) uistate.Input {
	switch {
	case key.Matches(msg, k.Confirm):
		return uistate.Input{Key: uistate.KeyConfirm}
	case key.Matches(msg, k.Cancel):
		return uistate.Input{Key: uistate.KeyCancel}
	case key.Matches(msg, k.Erase):
		return uistate.Input{Key: uistate.KeyErase}
	}
	switch msg.Type {
	case tea.KeySpace:
		return uistate.Char(" ")
	case tea.KeyRunes:
		if len(msg.Runes) > 0 {
			return uistate.Char(string(msg.Runes))
		}
	}
	return uistate.Input{}
}

func (k keyMap) normalHelp() []key.Binding {
	return []key.Binding{k.Compose, k.Name, k.Login, k.Quit}
}

func (k keyMap) editHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}
