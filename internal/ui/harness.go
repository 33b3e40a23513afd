package ui

import tea "github.com/charmbracelet/bubbletea"

// Harness drives the UI model programmatically for integration tests.
// Commands returned by Update are collected, not executed, because the tick
// and inbound waits reschedule themselves forever.
type Harness struct {
	model *Model
	last  tea.Cmd
}

// NewHarness creates a harness for the provided model.
func NewHarness(model *Model) *Harness {
	return &Harness{model: model}
}

// Send routes a message through the model.
func (h *Harness) Send(msg tea.Msg) {
	if h.model == nil {
		return
	}
	mdl, cmd := h.model.Update(msg)
	if updated, ok := mdl.(*Model); ok {
		h.model = updated
	}
	h.last = cmd
}

// Type sends each rune of text as its own key press.
func (h *Harness) Type(text string) {
	for _, r := range text {
		if r == ' ' {
			h.Send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
			continue
		}
		h.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// Press sends a special key such as tea.KeyEnter.
func (h *Harness) Press(k tea.KeyType) {
	h.Send(tea.KeyMsg{Type: k})
}

// Tick delivers one redraw tick, as the running program would.
func (h *Harness) Tick() {
	h.Send(tickMsg{})
}

// LastCmd returns the command produced by the most recent Send.
func (h *Harness) LastCmd() tea.Cmd {
	return h.last
}

// View returns the current view string.
func (h *Harness) View() string {
	if h.model == nil {
		return ""
	}
	return h.model.View()
}

// Model exposes the underlying model.
func (h *Harness) Model() *Model {
	return h.model
}
