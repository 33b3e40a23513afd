package ui

import (
	"time"

	"github.com/atomicstack/wiggle-chat/internal/backend"
	"github.com/atomicstack/wiggle-chat/internal/logging"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

type tickMsg time.Time

type inboundReadyMsg struct{}

type inboundClosedMsg struct {
	err error
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForInbound blocks off the loop until the mailbox has something to
// drain or its producer has stopped.
func waitForInbound(box *backend.Mailbox) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-box.Ready():
			return inboundReadyMsg{}
		case <-box.Done():
			return inboundClosedMsg{err: box.Err()}
		}
	}
}

func (m *Model) handleTickMsg(tea.Msg) tea.Cmd {
	if m.quitting {
		return nil
	}
	return tickCmd(m.tick)
}

func (m *Model) handleInboundReadyMsg(tea.Msg) tea.Cmd {
	if !m.inboxOpen || m.quitting {
		return nil
	}
	return waitForInbound(m.inbox)
}

func (m *Model) handleInboundClosedMsg(msg tea.Msg) tea.Cmd {
	closed, ok := msg.(inboundClosedMsg)
	if !ok {
		return nil
	}
	m.inboxOpen = false
	if closed.err != nil {
		m.brokerErr = closed.err.Error()
		logging.Warn("inbound stream ended", zap.Error(closed.err))
	}
	return nil
}
