// Package transport adapts gorilla/websocket connections to
// domain.Connection and drives their read/write pumps.
//
// Grounded on dragonfox-mediasync-server/websocket/adapter.go: same
// keep-alive constants and pump shape, generalized from that repo's
// per-connection room-name model (clients upgrade into one of many
// named rooms) to this spec's single shared room (every connection
// lands in the one Room; there is no room query parameter to parse).
package transport

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"dragonfox-chatroom/diagnostics"
	"dragonfox-chatroom/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Handler is the subset of protocol.Dispatcher's surface a Conn needs.
// Declared locally (rather than imported) so transport never depends on
// protocol or room.
type Handler interface {
	Handle(sessionID uint64, data []byte)
	HandleClose(sessionID uint64)
}

// Admitter is the subset of room.Room's surface needed to negotiate a
// new session.
type Admitter interface {
	Admit(open func() (domain.Connection, error)) (*domain.Session, error)
}

// Conn adapts one *websocket.Conn to domain.Connection, per spec.md
// §4.2's channel negotiation step.
type Conn struct {
	id      uint64
	ws      *websocket.Conn
	send    chan []byte
	handler Handler
	diag    *diagnostics.Sink
}

// Send queues data for delivery. It never blocks: when the outbound queue
// is full (a stalled peer), data is dropped and websocket.ErrCloseSent is
// returned; the connection itself stays open.
func (c *Conn) Send(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

// Close terminates the underlying socket.
func (c *Conn) Close() error {
	return c.ws.Close()
}

var _ domain.Connection = (*Conn)(nil)

// upgradeFailureBody is the plain-text fallback body served to a peer
// that hits the chat room's resource without a WebSocket handshake,
// per spec.md §4.2/§6/§7 — carried verbatim from the original plugin.
const upgradeFailureBody = "Try again, but next time use a WebSocket.  Kthxbye!"

// Upgrader is shared across all incoming requests; gorilla/websocket's
// Upgrader is safe for concurrent use once configured. Error is
// silenced here so ServeHTTP can write the spec's fallback response
// itself instead of gorilla's default "400 Bad Request" body.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	Error:           func(http.ResponseWriter, *http.Request, int, error) {},
}

// ServeHTTP upgrades an HTTP request to a WebSocket, admits a new
// session through admitter, and runs its read/write pumps until the
// peer disconnects. A request that isn't a WebSocket handshake gets the
// plain-text fallback response of spec.md §4.2 step 2 rather than an
// upgrade attempt.
func ServeHTTP(w http.ResponseWriter, r *http.Request, admitter Admitter, handler Handler, diag *diagnostics.Sink) {
	if !websocket.IsWebSocketUpgrade(r) {
		writeUpgradeFailure(w)
		return
	}

	ws, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		diag.Publish("transport", diagnostics.LevelWarning, fmt.Sprintf("upgrade failed: %v", err))
		writeUpgradeFailure(w)
		return
	}

	conn := &Conn{ws: ws, send: make(chan []byte, 256), handler: handler, diag: diag}
	session, err := admitter.Admit(func() (domain.Connection, error) { return conn, nil })
	if err != nil {
		diag.Publish("transport", diagnostics.LevelError, fmt.Sprintf("admit failed: %v", err))
		ws.Close()
		return
	}
	conn.id = session.ID

	go conn.writePump()
	conn.readPump()
}

func writeUpgradeFailure(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(upgradeFailureBody))
}

func (c *Conn) readPump() {
	defer func() {
		c.handler.HandleClose(c.id)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.diag.Publish(fmt.Sprintf("Session #%d", c.id), diagnostics.LevelWarning,
					fmt.Sprintf("read error: %v", err))
			}
			return
		}

		c.handler.Handle(c.id, data)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
