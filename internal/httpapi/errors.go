package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/opencanvas/canvasd/internal/canvaserr"
)

func statusFor(kind canvaserr.Kind) int {
	switch kind {
	case canvaserr.InvalidArgument:
		return http.StatusBadRequest
	case canvaserr.NotFound:
		return http.StatusNotFound
	case canvaserr.Unavailable:
		return http.StatusServiceUnavailable
	case canvaserr.Timeout, canvaserr.PeerError, canvaserr.Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["success"] = true
	writeJSON(w, http.StatusOK, payload)
}

func writeError(w http.ResponseWriter, err error) {
	kind := canvaserr.KindOf(err)
	writeJSON(w, statusFor(kind), map[string]any{"success": false, "error": err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": msg})
}
