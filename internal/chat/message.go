package chat

import (
	"encoding/binary"
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"
)

// AnonymousAuthor is used when the session has no identity.
const AnonymousAuthor = "Anonymous"

// idMask keeps generated ids inside the exactly representable range of
// IEEE-754 doubles so JSON consumers of the mirror do not round them.
const idMask = 1<<53 - 1

// Message is the unit of chat content shared between the loop, the
// dispatcher and the broker consumer.
type Message struct {
	ID        int64  `json:"id"`
	Author    string `json:"name"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
	// Seq is the storage sequence assigned on insert. Zero until stored and
	// never sent on the wire.
	Seq int64 `json:"-"`
}

// New builds a published message with a fresh provisional id. author falls
// back to AnonymousAuthor when blank.
func New(author, body string) Message {
	return Message{
		ID:        NewID(),
		Author:    AuthorOrAnonymous(author),
		Body:      body,
		Published: true,
	}
}

// NewID returns a random positive id. Ids are correlation tokens only;
// storage assigns the authoritative sequence on insert.
func NewID() int64 {
	u := uuid.New()
	return int64(binary.BigEndian.Uint64(u[:8]) & idMask)
}

// AuthorOrAnonymous trims name and substitutes AnonymousAuthor for blanks.
func AuthorOrAnonymous(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return AnonymousAuthor
}

// Clone returns an independent copy for hand-off to another goroutine.
func (m Message) Clone() Message {
	return Message{
		ID:        m.ID,
		Author:    m.Author,
		Body:      m.Body,
		Published: m.Published,
		Seq:       m.Seq,
	}
}

// Dispatchable reports whether the message carries a non-blank body.
func (m Message) Dispatchable() bool {
	return strings.TrimSpace(m.Body) != ""
}

// Printable removes terminal escape sequences and control characters from
// text received from peers. Tabs and line breaks become spaces.
func Printable(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, ansi.Strip(text))
}
