package state

import "strings"

// Buffer is the rune-oriented input line shared by every text-entry mode.
type Buffer struct {
	runes []rune
}

// Insert appends text to the end of the buffer.
func (b *Buffer) Insert(text string) bool {
	if text == "" {
		return false
	}
	b.runes = append(b.runes, []rune(text)...)
	return true
}

// Erase removes the final rune.
func (b *Buffer) Erase() bool {
	if len(b.runes) == 0 {
		return false
	}
	b.runes = b.runes[:len(b.runes)-1]
	return true
}

// Drain returns the buffer contents and clears it.
func (b *Buffer) Drain() string {
	text := string(b.runes)
	b.runes = nil
	return text
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.runes = nil
}

// String returns the buffer contents.
func (b *Buffer) String() string {
	return string(b.runes)
}

// Len reports the number of runes held.
func (b *Buffer) Len() int {
	return len(b.runes)
}

// Blank reports whether the buffer is empty after trimming whitespace.
func (b *Buffer) Blank() bool {
	return strings.TrimSpace(string(b.runes)) == ""
}
