package state

import (
	"strings"

	"github.com/atomicstack/wiggle-chat/internal/chat"
	"github.com/atomicstack/wiggle-chat/internal/logging/events"
)

// Key is an input event after terminal-specific decoding.
type Key int

const (
	KeyNone Key = iota
	KeyChar
	KeyConfirm
	KeyCancel
	KeyErase
)

// Input is a single key event. Text carries the runes for KeyChar.
type Input struct {
	Key  Key
	Text string
}

// Char builds a KeyChar input.
func Char(text string) Input { return Input{Key: KeyChar, Text: text} }

// Commands recognised in ModeNormal.
const (
	CommandCompose = "e"
	CommandName    = "n"
	CommandLogin   = "l"
	CommandQuit    = "q"
)

// Effect reports what Apply did so the caller can act on it.
type Effect struct {
	// Handled is false when the input had no meaning in the current mode.
	Handled bool
	// Quit asks the loop to terminate.
	Quit bool
	// Submitted holds the message built by a confirm in ModeComposing.
	Submitted *chat.Message
}

// Machine is the session state machine: mode, input buffer and identity.
type Machine struct {
	mode     Mode
	step     Step
	buffer   Buffer
	identity Identity
	username string
	newID    func() int64
}

// NewMachine returns a machine in ModeNormal with an anonymous identity.
func NewMachine() *Machine {
	return &Machine{mode: ModeNormal, identity: Anonymous{}, newID: chat.NewID}
}

// SetIDSource overrides id generation, mainly for tests.
func (m *Machine) SetIDSource(fn func() int64) {
	if fn == nil {
		fn = chat.NewID
	}
	m.newID = fn
}

func (m *Machine) Mode() Mode         { return m.mode }
func (m *Machine) Step() Step         { return m.step }
func (m *Machine) Identity() Identity { return m.identity }
func (m *Machine) Buffer() string     { return m.buffer.String() }
func (m *Machine) BufferLen() int     { return m.buffer.Len() }

// Author is the name attached to the next submitted message.
func (m *Machine) Author() string { return AuthorFor(m.identity) }

// PendingUsername is the username captured during the first login step.
func (m *Machine) PendingUsername() string { return m.username }

// Apply consumes one input event.
func (m *Machine) Apply(in Input) Effect {
	switch m.mode {
	case ModeNormal:
		return m.applyNormal(in)
	case ModeComposing:
		return m.applyComposing(in)
	case ModeNamingOrLogin:
		return m.applyNaming(in)
	}
	return Effect{}
}

func (m *Machine) applyNormal(in Input) Effect {
	if in.Key != KeyChar {
		return Effect{}
	}
	switch in.Text {
	case CommandCompose:
		m.setMode(ModeComposing, StepNone)
	case CommandName:
		m.buffer.Clear()
		m.setMode(ModeNamingOrLogin, StepName)
	case CommandLogin:
		m.buffer.Clear()
		m.username = ""
		m.setMode(ModeNamingOrLogin, StepUsername)
	case CommandQuit:
		events.Session.Quit()
		return Effect{Handled: true, Quit: true}
	default:
		return Effect{}
	}
	return Effect{Handled: true}
}

func (m *Machine) applyComposing(in Input) Effect {
	switch in.Key {
	case KeyConfirm:
		return m.submit()
	case KeyCancel:
		// The draft stays in the buffer and is resumed by the next compose.
		m.setMode(ModeNormal, StepNone)
		return Effect{Handled: true}
	}
	return m.edit(in)
}

func (m *Machine) submit() Effect {
	if m.buffer.Blank() {
		m.buffer.Clear()
		events.Compose.Discard(events.DiscardEmpty)
		return Effect{Handled: true}
	}
	body := strings.TrimSpace(m.buffer.Drain())
	msg := chat.Message{
		ID:        m.newID(),
		Author:    m.Author(),
		Body:      body,
		Published: true,
	}
	events.Compose.Submit(msg.ID, msg.Author)
	return Effect{Handled: true, Submitted: &msg}
}

func (m *Machine) applyNaming(in Input) Effect {
	switch in.Key {
	case KeyConfirm:
		return m.confirmIdentity()
	case KeyCancel:
		m.buffer.Clear()
		m.username = ""
		m.setMode(ModeNormal, StepNone)
		return Effect{Handled: true}
	}
	return m.edit(in)
}

func (m *Machine) confirmIdentity() Effect {
	switch m.step {
	case StepName:
		name := strings.TrimSpace(m.buffer.Drain())
		if name == "" {
			m.setIdentity(Anonymous{})
		} else {
			m.setIdentity(Named{Name: name})
		}
		m.setMode(ModeComposing, StepNone)
	case StepUsername:
		if m.buffer.Blank() {
			return Effect{Handled: true}
		}
		m.username = strings.TrimSpace(m.buffer.Drain())
		m.setMode(ModeNamingOrLogin, StepPassword)
	case StepPassword:
		password := m.buffer.Drain()
		m.setIdentity(NewCredentialed(m.username, password))
		m.username = ""
		m.setMode(ModeComposing, StepNone)
	}
	return Effect{Handled: true}
}

func (m *Machine) edit(in Input) Effect {
	switch in.Key {
	case KeyChar:
		return Effect{Handled: m.buffer.Insert(in.Text)}
	case KeyErase:
		return Effect{Handled: m.buffer.Erase()}
	}
	return Effect{}
}

func (m *Machine) setMode(mode Mode, step Step) {
	if m.mode != mode || m.step != step {
		events.Session.Mode(modeLabel(m.mode, m.step), modeLabel(mode, step))
	}
	m.mode = mode
	m.step = step
}

func (m *Machine) setIdentity(id Identity) {
	m.identity = id
	events.Session.Identity(id.Kind(), id.DisplayName())
}

func modeLabel(mode Mode, step Step) string {
	if step == StepNone {
		return mode.String()
	}
	return mode.String() + ":" + step.String()
}
