package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/opencanvas/canvasd/internal/broadcast"
	"github.com/opencanvas/canvasd/internal/canvas"
	"github.com/opencanvas/canvasd/internal/telemetry"
)

// handleWebSocket upgrades the connection, attaches it to the broadcast
// bus with the three initial frames, then services inbound mutations until
// the connection closes.
func (a *api) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		telemetry.Warn(r.Context(), "websocket upgrade failed", telemetry.KV("error", err.Error()))
		return
	}

	peer := broadcast.NewPeer(conn)
	scene := a.svc.ExportScene()
	initial := []broadcast.Message{
		{Type: "initial_elements", Data: scene.Elements},
		{Type: "sync_status", Data: map[string]any{"connected": true}},
		{Type: "canvas_sync", Data: scene},
	}
	a.svc.Bus.Attach(peer, initial)

	a.readLoop(peer)
}

func (a *api) readLoop(peer *broadcast.Peer) {
	defer a.svc.Bus.Detach(peer)
	for {
		_, raw, err := peer.Conn().ReadMessage()
		if err != nil {
			return
		}
		a.handleInbound(peer, raw)
	}
}

// handleInbound applies an inbound mutation from peer to the store and
// re-broadcasts excluding the sender, breaking the echo loop. Unknown tags
// are ignored.
func (a *api) handleInbound(peer *broadcast.Peer, raw []byte) {
	var msg broadcast.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}

	switch msg.Type {
	case "canvas_sync":
		var body struct {
			Elements []*canvas.Element `json:"elements"`
		}
		if !decodeData(msg.Data, &body) {
			return
		}
		a.svc.ApplyCanvasSync(body.Elements, peer)
	case "element_created":
		var el canvas.Element
		if !decodeData(msg.Data, &el) {
			return
		}
		_, _ = a.svc.CreateElement(&el, peer)
	case "element_updated":
		var body struct {
			ID      string         `json:"id"`
			Updates map[string]any `json:"updates"`
		}
		if !decodeData(msg.Data, &body) {
			return
		}
		_, _ = a.svc.UpdateElement(body.ID, body.Updates, peer)
	case "element_deleted":
		var body struct {
			ID string `json:"id"`
		}
		if !decodeData(msg.Data, &body) {
			return
		}
		a.svc.DeleteElement(body.ID, peer)
	}
}

func decodeData(data any, v any) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}
