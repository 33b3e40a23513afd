package chat

import (
	"errors"
	"testing"
)

func TestDecodeAcceptsEncodedMessage(t *testing.T) {
	in := Message{ID: 42, Author: "Sam", Body: "hi", Published: true}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got := string(data); got != `{"id":42,"name":"Sam","body":"hi","published":true}` {
		t.Fatalf("unexpected wire format %s", got)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in {
		t.Fatalf("expected %#v, got %#v", in, out)
	}
}

func TestDecodeAcceptsAuthorAlias(t *testing.T) {
	out, err := Decode([]byte(`{"id":7,"author":"Kim","body":"yo","published":true}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Author != "Kim" {
		t.Fatalf("expected author Kim, got %q", out.Author)
	}
}

func TestDecodeDefaultsBlankAuthor(t *testing.T) {
	out, err := Decode([]byte(`{"id":1,"body":"x"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Author != AnonymousAuthor {
		t.Fatalf("expected %q, got %q", AnonymousAuthor, out.Author)
	}
}

func TestDecodeRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    error
	}{
		{"not json", `hello`, ErrMalformed},
		{"truncated", `{"id":1,"name":"a"`, ErrMalformed},
		{"wrong type", `{"id":"one","body":"x"}`, ErrMalformed},
		{"missing id", `{"name":"a","body":"x"}`, ErrMalformed},
		{"empty body", `{"id":1,"name":"a","body":"  "}`, ErrEmptyBody},
		{"only escapes", `{"id":1,"name":"a","body":"\u001b[2J\u0007"}`, ErrEmptyBody},
	}
	for _, tc := range cases {
		if _, err := Decode([]byte(tc.payload)); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestDecodeStripsControlSequences(t *testing.T) {
	payload := `{"id":3,"name":"ev\u001b[31mil","body":"hi\u001b]0;pwned\u0007\u001b[2J there\nnow"}`
	msg, err := Decode([]byte(payload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Author != "evil" {
		t.Fatalf("expected stripped author, got %q", msg.Author)
	}
	if msg.Body != "hi there now" {
		t.Fatalf("expected stripped body, got %q", msg.Body)
	}
}

func TestPrintableKeepsPlainText(t *testing.T) {
	for _, text := range []string{"", "hello", "日本語 ok", "a:b;c"} {
		if got := Printable(text); got != text {
			t.Fatalf("Printable(%q) = %q", text, got)
		}
	}
}

func TestEncodeListNeverNull(t *testing.T) {
	data, err := EncodeList(nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected empty array, got %s", data)
	}
}

func TestNewUsesAnonymousForBlankAuthor(t *testing.T) {
	msg := New("  ", "hello")
	if msg.Author != AnonymousAuthor || msg.Body != "hello" || !msg.Published {
		t.Fatalf("unexpected message %#v", msg)
	}
	if msg.ID < 0 || msg.ID > idMask {
		t.Fatalf("id %d outside mask", msg.ID)
	}
}
