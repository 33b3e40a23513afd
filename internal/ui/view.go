package ui

import (
	"strings"

	"github.com/atomicstack/wiggle-chat/internal/chat"
	"github.com/atomicstack/wiggle-chat/internal/format/table"
	uistate "github.com/atomicstack/wiggle-chat/internal/ui/state"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
)

const (
	headerTitle      = "wiggle chat"
	emptyHistoryText = "no messages yet"
	maskRune         = "*"
	// header, separator, blank, prompt, help
	chromeLines = 5
)

type styledLine struct {
	text          string
	style         *lipgloss.Style
	prefixStyle   *lipgloss.Style
	highlightFrom int
	raw           bool // text is already styled; skip style wrapping
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	lines := make([]styledLine, 0, m.history.Limit()+chromeLines)
	lines = append(lines, m.headerLine(), m.separatorLine())
	lines = append(lines, limitHeight(m.historyLines(), m.historyHeight(), m.width)...)
	lines = append(lines, styledLine{})
	lines = append(lines, m.promptLine(), m.helpLine())
	return renderLines(applyWidth(lines, m.width))
}

func (m *Model) historyHeight() int {
	if m.height <= 0 {
		return -1
	}
	remain := m.height - chromeLines
	if remain < 1 {
		return 1
	}
	return remain
}

func (m *Model) headerLine() styledLine {
	title := headerTitle
	if m.topic != "" {
		title += " #" + m.topic
	}
	parts := []string{styles.Header.Render(title)}
	parts = append(parts, styles.Identity.Render("as "+chat.Printable(m.machine.Author())))
	switch {
	case m.BrokerOffline() && m.brokerErr != "":
		parts = append(parts, styles.Error.Render("broker offline: "+m.brokerErr))
	case m.BrokerOffline():
		parts = append(parts, styles.Error.Render("broker offline"))
	case m.inbox != nil:
		parts = append(parts, styles.StatusOnline.Render("live"))
	}
	return styledLine{text: strings.Join(parts, "  "), raw: true}
}

func (m *Model) separatorLine() styledLine {
	width := m.width
	if width <= 0 {
		width = len(headerTitle)
	}
	return styledLine{text: strings.Repeat("─", width), style: styles.Separator}
}

func (m *Model) historyLines() []styledLine {
	entries := m.history.Entries()
	if len(entries) == 0 {
		return []styledLine{{text: emptyHistoryText, style: styles.Empty}}
	}
	rows := make([][]string, len(entries))
	for i, msg := range entries {
		rows[i] = []string{chat.Printable(msg.Author) + ":"}
	}
	authors := table.Format(rows, []table.Alignment{table.AlignRight})
	lines := make([]styledLine, len(entries))
	for i, msg := range entries {
		lines[i] = styledLine{
			text:          authors[i] + "  " + chat.Printable(msg.Body),
			style:         styles.Body,
			prefixStyle:   styles.Author,
			highlightFrom: len([]rune(authors[i])),
		}
	}
	return lines
}

func (m *Model) promptLine() styledLine {
	var label, text string
	textStyle := styles.Input
	switch m.machine.Mode() {
	case uistate.ModeComposing:
		label, text = "> ", m.machine.Buffer()
	case uistate.ModeNamingOrLogin:
		switch m.machine.Step() {
		case uistate.StepName:
			label, text = "name: ", m.machine.Buffer()
		case uistate.StepUsername:
			label, text = "username: ", m.machine.Buffer()
		case uistate.StepPassword:
			label = "password for " + m.machine.PendingUsername() + ": "
			text = strings.Repeat(maskRune, m.machine.BufferLen())
			textStyle = styles.Masked
		}
	default:
		if draft := m.machine.Buffer(); draft != "" {
			return styledLine{text: "draft: " + draft, style: styles.Draft}
		}
		return styledLine{}
	}
	rendered := styles.Prompt.Render(label) + textStyle.Render(text) + m.inputCursor.View()
	return styledLine{text: rendered, raw: true}
}

func (m *Model) helpLine() styledLine {
	bindings := m.keys.normalHelp()
	if m.machine.Mode() != uistate.ModeNormal {
		bindings = m.keys.editHelp()
	}
	return styledLine{text: renderHelp(bindings), raw: true}
}

func renderHelp(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, styles.HelpKey.Render(h.Key)+" "+styles.Help.Render(h.Desc))
	}
	return strings.Join(parts, styles.Help.Render(" · "))
}

func limitHeight(lines []styledLine, height, width int) []styledLine {
	if height <= 0 || len(lines) <= height {
		return lines
	}
	if height == 1 {
		return []styledLine{{text: truncateText("…", width)}}
	}
	// keep the newest messages, the oldest are elided
	trimmed := make([]styledLine, 0, height)
	trimmed = append(trimmed, styledLine{text: truncateText("…", width)})
	trimmed = append(trimmed, lines[len(lines)-height+1:]...)
	return trimmed
}

func applyWidth(lines []styledLine, width int) []styledLine {
	if width <= 0 {
		return lines
	}
	result := make([]styledLine, len(lines))
	for i, line := range lines {
		result[i] = styledLine{
			text:          truncateText(line.text, width),
			style:         line.style,
			prefixStyle:   line.prefixStyle,
			highlightFrom: line.highlightFrom,
			raw:           line.raw,
		}
	}
	return result
}

func renderLines(lines []styledLine) string {
	out := make([]string, len(lines))
	for i, line := range lines {
		text := line.text
		if line.raw {
			out[i] = text
			continue
		}
		runes := []rune(text)
		if line.highlightFrom > 0 && line.highlightFrom < len(runes) {
			head := string(runes[:line.highlightFrom])
			tail := string(runes[line.highlightFrom:])
			if line.prefixStyle != nil {
				head = line.prefixStyle.Render(head)
			}
			if line.style != nil {
				tail = line.style.Render(tail)
			}
			text = head + tail
		} else if line.style != nil {
			text = line.style.Render(text)
		}
		out[i] = text
	}
	return strings.Join(out, "\n")
}

func truncateText(text string, width int) string {
	if width <= 0 || lipgloss.Width(text) <= width {
		return text
	}
	if width == 1 {
		return truncate.String(text, 1)
	}
	return truncate.StringWithTail(text, uint(width), "…")
}
