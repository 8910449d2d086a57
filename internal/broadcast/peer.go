package broadcast

import (
	"sync"

	"github.com/gorilla/websocket"
)

// sendBufferSize bounds the per-peer outbound queue. The broadcaster never
// blocks on a slow peer — a peer whose buffer fills is dropped and closed
// rather than backing up the broadcaster.
const sendBufferSize = 32

// Peer is one attached WebSocket connection. Peers are compared by pointer
// identity for exclusion-on-broadcast, not by any id carried in the
// payload.
type Peer struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// NewPeer wraps an upgraded WebSocket connection as a broadcastable Peer.
func NewPeer(conn *websocket.Conn) *Peer {
	return &Peer{
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
	}
}

// Conn returns the underlying connection, for the WebSocket facade's read
// loop.
func (p *Peer) Conn() *websocket.Conn { return p.conn }

// enqueue attempts a non-blocking send; it reports false (overflow) if the
// peer's buffer is full.
func (p *Peer) enqueue(payload []byte) bool {
	select {
	case p.send <- payload:
		return true
	case <-p.closed:
		return false
	default:
		return false
	}
}

// runWriter drains the send queue to the socket until the peer is closed or
// a write fails. It is started once per peer by the Bus on Attach.
func (p *Peer) runWriter(onError func()) {
	for {
		select {
		case msg, ok := <-p.send:
			if !ok {
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				onError()
				return
			}
		case <-p.closed:
			return
		}
	}
}

// Close terminates the peer's writer goroutine and the underlying
// connection. Idempotent.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		_ = p.conn.Close()
	})
}
