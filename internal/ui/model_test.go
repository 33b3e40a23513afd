package ui

import (
	"fmt"
	"sync"
	"testing"

	"github.com/atomicstack/wiggle-chat/internal/backend"
	"github.com/atomicstack/wiggle-chat/internal/chat"
	"github.com/atomicstack/wiggle-chat/internal/state"
	"github.com/atomicstack/wiggle-chat/internal/testutil"
	uistate "github.com/atomicstack/wiggle-chat/internal/ui/state"
	tea "github.com/charmbracelet/bubbletea"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	msgs []chat.Message
}

func (d *recordingDispatcher) Dispatch(msg chat.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
}

func (d *recordingDispatcher) sent() []chat.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]chat.Message(nil), d.msgs...)
}

func newTestHarness(box *backend.Mailbox, d Dispatcher) *Harness {
	machine := uistate.NewMachine()
	var next int64
	machine.SetIDSource(func() int64 {
		next++
		return next
	})
	return NewHarness(NewModel(Options{
		History:    state.NewHistory(10),
		Inbox:      box,
		Dispatcher: d,
		Machine:    machine,
	}))
}

func TestAnonymousSubmission(t *testing.T) {
	d := &recordingDispatcher{}
	h := newTestHarness(nil, d)

	h.Type("e")
	h.Type("hello world")
	h.Press(tea.KeyEnter)

	msgs := h.Model().Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %+v", msgs)
	}
	got := msgs[0]
	if got.Author != chat.AnonymousAuthor || got.Body != "hello world" || !got.Published {
		t.Fatalf("unexpected message %+v", got)
	}
	sent := d.sent()
	if len(sent) != 1 || sent[0] != got {
		t.Fatalf("expected the same message dispatched, got %+v", sent)
	}
	if h.Model().Machine().Mode() != uistate.ModeComposing || h.Model().Machine().Buffer() != "" {
		t.Fatalf("expected composing with empty buffer after submit")
	}
}

func TestNamedSubmission(t *testing.T) {
	d := &recordingDispatcher{}
	h := newTestHarness(nil, d)

	h.Type("n")
	h.Type("Sam")
	h.Press(tea.KeyEnter)
	if mode := h.Model().Machine().Mode(); mode != uistate.ModeComposing {
		t.Fatalf("expected composing after naming, got %v", mode)
	}
	h.Type("hi there")
	h.Press(tea.KeyEnter)

	msgs := h.Model().Messages()
	if len(msgs) != 1 || msgs[0].Author != "Sam" || msgs[0].Body != "hi there" {
		t.Fatalf("unexpected history %+v", msgs)
	}
}

func TestEmptySubmissionIsNoop(t *testing.T) {
	d := &recordingDispatcher{}
	h := newTestHarness(nil, d)

	h.Type("e")
	h.Press(tea.KeyEnter)
	h.Type("   ")
	h.Press(tea.KeyEnter)

	if n := len(h.Model().Messages()); n != 0 {
		t.Fatalf("expected no history, got %d", n)
	}
	if n := len(d.sent()); n != 0 {
		t.Fatalf("expected no dispatch, got %d", n)
	}
}

func TestFifteenSubmissionsKeepLastTen(t *testing.T) {
	d := &recordingDispatcher{}
	h := newTestHarness(nil, d)

	h.Type("e")
	for i := 1; i <= 15; i++ {
		h.Type(fmt.Sprintf("m%d", i))
		h.Press(tea.KeyEnter)
	}

	msgs := h.Model().Messages()
	if len(msgs) != 10 {
		t.Fatalf("expected 10 visible messages, got %d", len(msgs))
	}
	for i, msg := range msgs {
		if want := fmt.Sprintf("m%d", i+6); msg.Body != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, msg.Body)
		}
	}
	if n := len(d.sent()); n != 15 {
		t.Fatalf("expected every submission dispatched, got %d", n)
	}
}

func TestSubmissionOrderMatchesDispatchOrder(t *testing.T) {
	d := &recordingDispatcher{}
	h := newTestHarness(nil, d)
	h.Type("e")
	for _, body := range []string{"a", "b", "c"} {
		h.Type(body)
		h.Press(tea.KeyEnter)
	}
	sent := d.sent()
	for i, body := range []string{"a", "b", "c"} {
		if sent[i].Body != body {
			t.Fatalf("dispatch %d: expected %s, got %s", i, body, sent[i].Body)
		}
	}
}

func TestInboundVisibleAfterNextUpdate(t *testing.T) {
	box := backend.NewMailbox()
	h := newTestHarness(box, nil)

	for i := int64(1); i <= 3; i++ {
		box.Send(chat.Message{ID: 100 + i, Author: "peer", Body: fmt.Sprintf("in%d", i), Published: true})
	}
	if n := len(h.Model().Messages()); n != 0 {
		t.Fatalf("inbound must not apply before an update, got %d", n)
	}
	h.Tick()

	msgs := h.Model().Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 inbound messages, got %d", len(msgs))
	}
	for i, msg := range msgs {
		if msg.Body != fmt.Sprintf("in%d", i+1) {
			t.Fatalf("expected arrival order, got %+v", msgs)
		}
	}
}

func TestInboundBurstIsTrimmedBeforeView(t *testing.T) {
	box := backend.NewMailbox()
	h := newTestHarness(box, nil)
	h.Send(inboundReadyMsg{})
	for _, msg := range testutil.Messages(15, 1, "peer", "b") {
		box.Send(msg)
	}
	h.Send(inboundReadyMsg{})

	msgs := h.Model().Messages()
	if len(msgs) != 10 || msgs[0].Body != "b6" || msgs[9].Body != "b15" {
		t.Fatalf("expected b6..b15, got %+v", msgs)
	}
	if h.LastCmd() == nil {
		t.Fatalf("expected the inbound wait to be rescheduled")
	}
}

func TestLocalAndInboundInterleave(t *testing.T) {
	box := backend.NewMailbox()
	d := &recordingDispatcher{}
	h := newTestHarness(box, d)

	h.Type("e")
	h.Type("mine")
	box.Send(chat.Message{ID: 50, Author: "peer", Body: "theirs"})
	h.Press(tea.KeyEnter)

	msgs := h.Model().Messages()
	if len(msgs) != 2 || msgs[0].Body != "theirs" || msgs[1].Body != "mine" {
		t.Fatalf("expected drained inbound before local submit, got %+v", msgs)
	}
}

func TestInboundClosedMarksOffline(t *testing.T) {
	box := backend.NewMailbox()
	h := newTestHarness(box, nil)
	box.Send(chat.Message{ID: 1, Author: "peer", Body: "last words"})
	box.Close(fmt.Errorf("subscribe wiggle: %w", errClosedForTest))

	h.Send(inboundClosedMsg{err: box.Err()})
	if !h.Model().BrokerOffline() {
		t.Fatalf("expected broker offline")
	}
	if msgs := h.Model().Messages(); len(msgs) != 1 {
		t.Fatalf("expected queued message still delivered, got %+v", msgs)
	}
	h.Send(inboundReadyMsg{})
	if h.LastCmd() != nil {
		t.Fatalf("expected no further inbound waits after close")
	}
}

var errClosedForTest = fmt.Errorf("broker gone")

func TestQuitKeys(t *testing.T) {
	h := newTestHarness(nil, nil)
	h.Type("e")
	h.Type("q")
	if h.Model().Quitting() {
		t.Fatalf("q while composing must be text")
	}
	if h.Model().Machine().Buffer() != "q" {
		t.Fatalf("expected q in buffer, got %q", h.Model().Machine().Buffer())
	}
	h.Press(tea.KeyEsc)
	h.Type("q")
	if !h.Model().Quitting() || h.LastCmd() == nil {
		t.Fatalf("expected q in normal mode to quit")
	}
}

func TestCtrlCQuitsFromAnyMode(t *testing.T) {
	h := newTestHarness(nil, nil)
	h.Type("l")
	h.Press(tea.KeyCtrlC)
	if !h.Model().Quitting() {
		t.Fatalf("expected ctrl+c to quit")
	}
	if h.View() != "" {
		t.Fatalf("expected empty view after quit")
	}
}

func TestLoginSetsAuthor(t *testing.T) {
	h := newTestHarness(nil, nil)
	h.Type("l")
	h.Type("alice")
	h.Press(tea.KeyEnter)
	h.Type("pw")
	h.Press(tea.KeyBackspace)
	h.Type("ass")
	h.Press(tea.KeyEnter)

	machine := h.Model().Machine()
	creds, ok := machine.Identity().(uistate.Credentialed)
	if !ok {
		t.Fatalf("expected credentialed identity, got %T", machine.Identity())
	}
	if creds.Password() != "pass" || machine.Author() != "alice" {
		t.Fatalf("unexpected credentials %v (%q)", creds, creds.Password())
	}
}

func TestTickReschedules(t *testing.T) {
	h := newTestHarness(nil, nil)
	h.Tick()
	if h.LastCmd() == nil {
		t.Fatalf("expected tick to reschedule")
	}
}

func TestInitSchedulesWork(t *testing.T) {
	m := NewModel(Options{Inbox: backend.NewMailbox()})
	if m.Init() == nil {
		t.Fatalf("expected init commands")
	}
}

func TestWindowSizeRespectsFixedDimensions(t *testing.T) {
	m := NewModel(Options{Width: 40})
	h := NewHarness(m)
	h.Send(tea.WindowSizeMsg{Width: 100, Height: 30})
	if m.width != 40 || m.height != 30 {
		t.Fatalf("expected 40x30, got %dx%d", m.width, m.height)
	}
}
