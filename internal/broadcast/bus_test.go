package broadcast

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialPeer spins up a one-shot WS server wrapping a fresh Bus peer and
// returns the client-side connection connected to it, plus the server-side
// Peer handle.
func dialPeer(t *testing.T) (*websocket.Conn, *Peer) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	peerCh := make(chan *Peer, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		peerCh <- NewPeer(conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + srv.URL[len("http"):]
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	peer := <-peerCh
	return client, peer
}

func TestAttachSendsThreeInitialFrames(t *testing.T) {
	client, peer := dialPeer(t)
	bus := New()

	bus.Attach(peer, []Message{
		{Type: "initial_elements", Data: []int{}},
		{Type: "sync_status", Data: "ok"},
		{Type: "canvas_sync", Data: map[string]any{}},
	})

	for _, want := range []string{"initial_elements", "sync_status", "canvas_sync"} {
		_, msg, err := client.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(msg), want)
	}
	assert.Equal(t, 1, bus.Count())
}

func TestBroadcastExcludesSender(t *testing.T) {
	clientA, peerA := dialPeer(t)
	clientB, peerB := dialPeer(t)
	bus := New()
	bus.Attach(peerA, nil)
	bus.Attach(peerB, nil)

	bus.Broadcast(Message{Type: "canvas_sync", Data: "x"}, peerA)

	_ = clientA.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := clientA.ReadMessage()
	assert.Error(t, err, "excluded sender must not receive its own broadcast")

	_ = clientB.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := clientB.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "canvas_sync")
}

func TestDetachRemovesPeer(t *testing.T) {
	_, peer := dialPeer(t)
	bus := New()
	bus.Attach(peer, nil)
	require.Equal(t, 1, bus.Count())

	bus.Detach(peer)
	assert.Equal(t, 0, bus.Count())

	// Detach is idempotent.
	bus.Detach(peer)
	assert.Equal(t, 0, bus.Count())
}

func TestPeerEnqueueOverflowReturnsFalse(t *testing.T) {
	_, peer := dialPeer(t)
	// No writer goroutine is draining peer.send here, so capacity is exact.
	for i := 0; i < sendBufferSize; i++ {
		require.True(t, peer.enqueue([]byte("m")))
	}
	assert.False(t, peer.enqueue([]byte("overflow")), "enqueue beyond the bounded buffer must report overflow")
}
