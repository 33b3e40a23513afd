package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformed marks payloads that are not a JSON message record.
	ErrMalformed = errors.New("malformed message payload")
	// ErrEmptyBody marks records whose body is blank.
	ErrEmptyBody = errors.New("message body is empty")
)

// wireMessage accepts both the "name" field written by this program and the
// "author" spelling used by other producers.
type wireMessage struct {
	ID        *int64 `json:"id"`
	Name      string `json:"name"`
	Author    string `json:"author"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

// Encode serialises m into the broker/mirror wire format.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode message %d: %w", m.ID, err)
	}
	return data, nil
}

// EncodeList serialises a message listing.
func EncodeList(msgs []Message) ([]byte, error) {
	if msgs == nil {
		msgs = []Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("encode message list: %w", err)
	}
	return data, nil
}

// Decode parses a wire payload. Escape sequences are stripped from the
// author and body; payloads without an id, or whose body is blank after
// stripping, are rejected.
func Decode(payload []byte) (Message, error) {
	var wire wireMessage
	if err := json.Unmarshal(payload, &wire); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if wire.ID == nil {
		return Message{}, fmt.Errorf("%w: missing id", ErrMalformed)
	}
	msg := Message{
		ID:        *wire.ID,
		Author:    Printable(wire.Name),
		Body:      Printable(wire.Body),
		Published: wire.Published,
	}
	if msg.Author == "" {
		msg.Author = Printable(wire.Author)
	}
	msg.Author = AuthorOrAnonymous(msg.Author)
	if !msg.Dispatchable() {
		return Message{}, ErrEmptyBody
	}
	return msg, nil
}
