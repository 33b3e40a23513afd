package ui

import (
	"reflect"
	"time"

	"github.com/atomicstack/wiggle-chat/internal/backend"
	"github.com/atomicstack/wiggle-chat/internal/chat"
	"github.com/atomicstack/wiggle-chat/internal/logging/events"
	"github.com/atomicstack/wiggle-chat/internal/metrics"
	"github.com/atomicstack/wiggle-chat/internal/state"
	"github.com/atomicstack/wiggle-chat/internal/theme"
	uistate "github.com/atomicstack/wiggle-chat/internal/ui/state"
	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
)

const defaultTick = 200 * time.Millisecond

var styles = theme.Default()

type msgHandler func(tea.Msg) tea.Cmd

// Dispatcher receives submitted messages. Dispatch must not block.
type Dispatcher interface {
	Dispatch(msg chat.Message)
}

// Options wires the model to its collaborators. Nil collaborators disable
// the matching behaviour.
type Options struct {
	History    *state.History
	Inbox      *backend.Mailbox
	Dispatcher Dispatcher
	Metrics    *metrics.Metrics
	Machine    *uistate.Machine
	// Tick is the redraw interval when no input arrives.
	Tick   time.Duration
	Width  int
	Height int
	// Topic labels the header.
	Topic string
}

// Model implements the Bubble Tea model for the chat session.
type Model struct {
	machine    *uistate.Machine
	history    *state.History
	inbox      *backend.Mailbox
	inboxOpen  bool
	brokerErr  string
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	tick       time.Duration
	topic      string
	keys       keyMap

	width       int
	height      int
	fixedWidth  bool
	fixedHeight bool
	quitting    bool

	inputCursor      cursor.Model
	inputCursorDirty bool

	handlers map[reflect.Type]msgHandler
}

// NewModel builds the render loop around opts.
func NewModel(opts Options) *Model {
	history := opts.History
	if history == nil {
		history = state.NewHistory(state.DefaultHistoryLimit)
	}
	machine := opts.Machine
	if machine == nil {
		machine = uistate.NewMachine()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	m := &Model{
		machine:    machine,
		history:    history,
		inbox:      opts.Inbox,
		inboxOpen:  opts.Inbox != nil,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
		tick:       tick,
		topic:      opts.Topic,
		keys:       defaultKeyMap(),
	}
	if opts.Width > 0 {
		m.width = opts.Width
		m.fixedWidth = true
	}
	if opts.Height > 0 {
		m.height = opts.Height
		m.fixedHeight = true
	}
	c := cursor.New()
	if styles.Cursor != nil {
		c.Style = styles.Cursor.Copy()
	}
	if styles.Input != nil {
		c.TextStyle = styles.Input.Copy()
	}
	c.SetChar(" ")
	m.inputCursor = c
	m.registerHandlers()
	return m
}

// Init is part of the tea.Model interface.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.tick)}
	if m.inboxOpen {
		cmds = append(cmds, waitForInbound(m.inbox))
	}
	if cmd := m.inputCursor.Focus(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// Update responds to Bubble Tea messages. Inbound messages are merged before
// the event is handled and the history window is applied after, so View
// never observes more than the configured number of messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.drainInbox()
	cmds := make([]tea.Cmd, 0, 4)
	if cmd := m.updateInputCursor(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if handler := m.handlerFor(msg); handler != nil {
		if cmd := handler(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	m.trimHistory()
	return m, m.finishUpdate(cmds)
}

func (m *Model) registerHandlers() {
	m.handlers = map[reflect.Type]msgHandler{
		reflect.TypeOf(tea.KeyMsg{}):        m.handleKeyMsg,
		reflect.TypeOf(tea.WindowSizeMsg{}): m.handleWindowSizeMsg,
		reflect.TypeOf(tickMsg{}):           m.handleTickMsg,
		reflect.TypeOf(inboundReadyMsg{}):   m.handleInboundReadyMsg,
		reflect.TypeOf(inboundClosedMsg{}):  m.handleInboundClosedMsg,
	}
}

func (m *Model) handlerFor(msg tea.Msg) msgHandler {
	if msg == nil || m.handlers == nil {
		return nil
	}
	t := reflect.TypeOf(msg)
	if handler, ok := m.handlers[t]; ok {
		return handler
	}
	if t.Kind() == reflect.Ptr {
		if handler, ok := m.handlers[t.Elem()]; ok {
			return handler
		}
	}
	return nil
}

func (m *Model) finishUpdate(cmds []tea.Cmd) tea.Cmd {
	if m.inputCursorDirty {
		m.inputCursorDirty = false
		m.inputCursor.Blink = false
		if cmd := m.inputCursor.BlinkCmd(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.Msg) tea.Cmd {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}
	if m.keys.isForceQuit(keyMsg) {
		events.Session.Quit()
		return m.quit()
	}
	before := m.machine.BufferLen()
	effect := m.machine.Apply(m.keys.input(keyMsg))
	if m.machine.BufferLen() != before {
		m.inputCursorDirty = true
	}
	if effect.Submitted != nil {
		m.submit(*effect.Submitted)
	}
	if effect.Quit {
		return m.quit()
	}
	return nil
}

// submit makes the message visible locally and hands its side effects off.
func (m *Model) submit(msg chat.Message) {
	m.history.Append(msg)
	if m.dispatcher != nil {
		m.dispatcher.Dispatch(msg)
	}
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	return tea.Quit
}

func (m *Model) drainInbox() {
	if m.inbox == nil {
		return
	}
	msgs := m.inbox.Drain()
	if len(msgs) == 0 {
		return
	}
	m.history.Append(msgs...)
	events.History.Merge(len(msgs))
}

func (m *Model) trimHistory() {
	removed := m.history.Trim()
	if removed == 0 {
		return
	}
	m.metrics.HistoryTrimmed(removed)
	events.History.Trim(removed, m.history.Len())
}

func (m *Model) handleWindowSizeMsg(msg tea.Msg) tea.Cmd {
	resize, ok := msg.(tea.WindowSizeMsg)
	if !ok {
		return nil
	}
	if !m.fixedWidth {
		m.width = resize.Width
	}
	if !m.fixedHeight {
		m.height = resize.Height
	}
	return nil
}

func (m *Model) updateInputCursor(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.inputCursor, cmd = m.inputCursor.Update(msg)
	return cmd
}

// Messages returns the visible history, oldest first.
func (m *Model) Messages() []chat.Message {
	return m.history.Entries()
}

// Machine exposes the session state machine.
func (m *Model) Machine() *uistate.Machine {
	return m.machine
}

// BrokerOffline reports whether the inbound stream has ended.
func (m *Model) BrokerOffline() bool {
	return m.inbox != nil && !m.inboxOpen
}

// Quitting reports whether the model has asked the program to exit.
func (m *Model) Quitting() bool {
	return m.quitting
}
