package httpapi

import "github.com/opencanvas/canvasd/internal/broadcast"

func bcast(msgType string, data any) broadcast.Message {
	return broadcast.Message{Type: msgType, Data: data}
}
