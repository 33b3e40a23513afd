package state

import (
	"strings"

	"github.com/atomicstack/wiggle-chat/internal/chat"
)

// Identity is whatever the session knows about its user.
type Identity interface {
	// DisplayName is the author attached to outgoing messages.
	DisplayName() string
	// Kind names the identity shape for traces.
	Kind() string
}

// Anonymous is the identity of a session that never set a name.
type Anonymous struct{}

func (Anonymous) DisplayName() string { return chat.AnonymousAuthor }
func (Anonymous) Kind() string        { return "anonymous" }

// Named carries a display name only.
type Named struct {
	Name string
}

func (n Named) DisplayName() string { return chat.AuthorOrAnonymous(n.Name) }
func (Named) Kind() string          { return "named" }

// Credentialed carries a display name plus the password captured at login.
// Credentials are held for the session only; nothing verifies them.
type Credentialed struct {
	Username string
	password string
}

// NewCredentialed builds a login identity.
func NewCredentialed(username, password string) Credentialed {
	return Credentialed{Username: strings.TrimSpace(username), password: password}
}

func (c Credentialed) DisplayName() string { return chat.AuthorOrAnonymous(c.Username) }
func (Credentialed) Kind() string          { return "credentialed" }

// HasPassword reports whether a non-empty password was captured.
func (c Credentialed) HasPassword() bool { return c.password != "" }

// Password returns the captured password.
func (c Credentialed) Password() string { return c.password }

// String never includes the password.
func (c Credentialed) String() string {
	return "Credentialed{" + c.Username + "}"
}

// AuthorFor resolves the author name for id, treating nil as anonymous.
func AuthorFor(id Identity) string {
	if id == nil {
		return chat.AnonymousAuthor
	}
	return id.DisplayName()
}
