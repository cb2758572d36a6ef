// Package domain holds the core types and collaborator interfaces of the
// chat room engine: the wire message envelope, the session record, and
// the abstractions the engine consumes (a connection, a time source)
// without depending on any transport.
package domain

// Message is the structured envelope exchanged over the text-message
// channel. Inbound messages use Type plus whichever of the optional
// fields apply; outbound messages are stamped with Time by the sender.
type Message struct {
	Type string `json:"Type"`

	// Inbound fields.
	NickName string `json:"NickName,omitempty"`
	Tell     string `json:"Tell,omitempty"`

	// Outbound fields.
	Time               float64  `json:"Time"`
	AvailableNickNames []string `json:"AvailableNickNames,omitempty"`
	NickNames          []string `json:"NickNames,omitempty"`
	Users              []User   `json:"Users,omitempty"`
	Success            *bool    `json:"Success,omitempty"`
	Sender             string   `json:"Sender,omitempty"`
	Subject            string   `json:"Subject,omitempty"`
	Award              int      `json:"Award,omitempty"`
	Penalty            int      `json:"Penalty,omitempty"`
	Points             int      `json:"Points,omitempty"`
}

// User is one entry in a GetUsers reply.
type User struct {
	Nickname string `json:"Nickname"`
	Points   int    `json:"Points"`
}

// Session is one live connection's state, as described by spec.md §3.
type Session struct {
	ID       uint64
	NickName string
	Points   int
	LastTell float64
	Open     bool
	Channel  Connection
}

// IsLurker reports whether the session has no claimed nickname, making it
// invisible to membership listings and join/leave notifications.
func (s *Session) IsLurker() bool {
	return s.NickName == ""
}

// Connection is the abstract bidirectional text-message channel the
// engine consumes. The transport package provides the only production
// implementation (over gorilla/websocket); tests provide fakes.
type Connection interface {
	// Send delivers an already-encoded text message to the peer.
	Send(data []byte) error
	// Close terminates the underlying channel.
	Close() error
}

// TimeSource supplies the engine's notion of "now", in seconds, as an
// injected collaborator so tests can control time deterministically.
type TimeSource interface {
	Now() float64
}
