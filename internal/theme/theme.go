package theme

import "github.com/charmbracelet/lipgloss"

// Styles describes reusable Lip Gloss styles shared across the UI.
type Styles struct {
	Header       *lipgloss.Style
	Identity     *lipgloss.Style
	Author       *lipgloss.Style
	Body         *lipgloss.Style
	Empty        *lipgloss.Style
	Prompt       *lipgloss.Style
	Input        *lipgloss.Style
	Masked       *lipgloss.Style
	Cursor       *lipgloss.Style
	Help         *lipgloss.Style
	HelpKey      *lipgloss.Style
	Draft        *lipgloss.Style
	Error        *lipgloss.Style
	Separator    *lipgloss.Style
	StatusOnline *lipgloss.Style
}

var defaultStyles = Styles{
	Header: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true),
	),
	Identity: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
	),
	Author: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
	),
	Body: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	),
	Empty: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
	),
	Prompt: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
	),
	Input: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
	),
	Masked: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	),
	Cursor: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("33")).Blink(true),
	),
	Help: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	),
	HelpKey: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("249")).Bold(true),
	),
	Draft: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true),
	),
	Error: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	),
	Separator: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	),
	StatusOnline: ptr(
		lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
	),
}

// Default exposes the standard style set used across the application.
func Default() *Styles {
	return &defaultStyles
}

func ptr(style lipgloss.Style) *lipgloss.Style {
	return &style
}
