// Package broadcast implements the broadcast bus: the set of connected
// WebSocket peers, serialize-once fan-out, and exclude-on-broadcast echo
// suppression. Shaped after a subscribe/publish/close broadcaster over a
// set of channel-backed subscribers, generalized here from untyped pub/sub
// events to addressable WebSocket peers with an explicit per-broadcast
// exclusion.
package broadcast

import (
	"encoding/json"
	"sync"

	"github.com/opencanvas/canvasd/internal/telemetry"
)

// Message is the closed-tag wire envelope broadcast to peers.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Bus maintains the attached peer set and fans out messages to it.
type Bus struct {
	mu    sync.RWMutex
	peers map[*Peer]struct{}
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{peers: make(map[*Peer]struct{})}
}

// Attach adds peer to the set and sends the initial frames, in order. It
// must be called once per peer, before the WebSocket facade starts that
// peer's inbound read loop.
func (b *Bus) Attach(peer *Peer, initial []Message) {
	b.mu.Lock()
	b.peers[peer] = struct{}{}
	b.mu.Unlock()

	go peer.runWriter(func() { b.Detach(peer) })

	for _, msg := range initial {
		b.sendTo(peer, msg)
	}
	telemetry.WSPeers.Set(float64(b.Count()))
}

// Detach removes peer from the set and closes it. Safe to call multiple
// times.
func (b *Bus) Detach(peer *Peer) {
	b.mu.Lock()
	_, ok := b.peers[peer]
	delete(b.peers, peer)
	b.mu.Unlock()
	if ok {
		peer.Close()
		telemetry.WSPeers.Set(float64(b.Count()))
	}
}

// Broadcast serializes msg once and enqueues it on every attached peer
// except exclude. Peers whose buffer is full are dropped and closed rather
// than allowed to stall the broadcaster.
func (b *Bus) Broadcast(msg Message, exclude *Peer) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	telemetry.BroadcastMessagesTotal.WithLabelValues(msg.Type).Inc()

	b.mu.RLock()
	targets := make([]*Peer, 0, len(b.peers))
	for p := range b.peers {
		if p == exclude {
			continue
		}
		targets = append(targets, p)
	}
	b.mu.RUnlock()

	for _, p := range targets {
		if !p.enqueue(payload) {
			b.Detach(p)
		}
	}
}

// Count returns the number of attached peers.
func (b *Bus) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.peers)
}

func (b *Bus) sendTo(peer *Peer, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	telemetry.BroadcastMessagesTotal.WithLabelValues(msg.Type).Inc()
	if !peer.enqueue(payload) {
		b.Detach(peer)
	}
}
