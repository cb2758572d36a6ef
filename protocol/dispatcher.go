// Package protocol sits between the transport and the room, the same
// position the teacher's protocol.Handler occupies between its
// websocket.Conn and hub.Hub.
//
// Grounded on dragonfox-mediasync-server/protocol/handler.go: a thin
// Handle(conn, data) entry point that decodes just enough to log and
// then delegates. Unlike the teacher, the actual Type-based routing and
// JSON decoding now lives in room.Room itself (it needs the full
// envelope to implement spec.md §4.1-§4.4's decision tables), so this
// package's job shrinks to decoupling the transport from a concrete
// *room.Room via the RoomHandler interface, plus the diagnostic logging
// the teacher's Handle did inline with slog.
package protocol

import (
	"fmt"

	"dragonfox-chatroom/diagnostics"
)

// RoomHandler is the subset of room.Room's surface the transport layer
// needs. Declaring it here (rather than importing room directly in
// transport) mirrors the teacher's domain.Broadcaster seam between
// protocol and hub.
type RoomHandler interface {
	HandleText(sessionID uint64, data []byte)
	HandleClose(sessionID uint64)
}

// Dispatcher forwards inbound frames and close notifications from a
// transport session to the room, publishing a diagnostic on receipt.
type Dispatcher struct {
	room RoomHandler
	diag *diagnostics.Sink
}

// New constructs a Dispatcher bound to room, publishing diagnostics
// through diag.
func New(room RoomHandler, diag *diagnostics.Sink) *Dispatcher {
	return &Dispatcher{room: room, diag: diag}
}

// Handle forwards one inbound text frame for sessionID.
func (d *Dispatcher) Handle(sessionID uint64, data []byte) {
	d.diag.Publish(fmt.Sprintf("Session #%d", sessionID), diagnostics.LevelInfo,
		fmt.Sprintf("received %d bytes", len(data)))
	d.room.HandleText(sessionID, data)
}

// HandleClose forwards a transport-level close notification for sessionID.
func (d *Dispatcher) HandleClose(sessionID uint64) {
	d.room.HandleClose(sessionID)
}
