// Package ui contains the Bubble Tea program that renders the chat session.
// It is the only owner of the visible history and the session state machine.
//
// Message flow:
//   - Every Model.Update first drains the inbound mailbox filled by the broker
//     consumer, then routes the tea.Msg through a typed handler registry, then
//     trims the history to its window. View therefore never shows more than
//     the configured number of messages.
//   - Key presses are translated by the keymap (input.go) into state machine
//     inputs (internal/ui/state). A submitted message is appended to history
//     at once and handed to the dispatcher, which persists and publishes it
//     on its own goroutines.
//   - A periodic tick and a command blocking on the mailbox's Ready signal
//     keep drains and redraws going while the user is idle.
//
// The loop never waits on the network or on storage.
package ui
