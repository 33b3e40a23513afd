// Package chat defines the Message entity exchanged by every actor in the
// client, along with its JSON wire format and provisional id generation.
package chat
