// Package httpapi hosts the Canvas State Service's HTTP and WebSocket
// surface: the legacy verbatim endpoints, the /api/... primary surface
// (search, batch, sync, correlated calls and their result endpoints,
// snapshots), and the WebSocket upgrade.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"goa.design/clue/debug"

	"github.com/opencanvas/canvasd/internal/canvasservice"
)

// Options configures the router.
type Options struct {
	Debug bool
	// MCP serves POST /mcp; kept as a plain http.Handler so httpapi does not
	// import mcpgateway directly (cmd/canvasd wires the two together).
	MCP http.Handler
}

// NewRouter builds the full HTTP surface over svc.
func NewRouter(svc *canvasservice.Service, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	api := &api{svc: svc, upgrader: &websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}}

	api.mountLegacy(r)
	api.mountREST(r)
	r.Get("/ws", api.handleWebSocket)

	if opts.MCP != nil {
		r.Post("/mcp", opts.MCP.ServeHTTP)
	}

	r.Handle("/metrics", promhttp.Handler())
	if opts.Debug {
		debug.MountPprofHandlers(debug.Adapt(r))
		debug.MountDebugLogEnabler(debug.Adapt(r))
	}

	return r
}

// corsMiddleware is permissive by design: this service is single-user
// localhost with no authentication boundary to protect.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// api carries the shared dependencies for every handler in this package.
type api struct {
	svc      *canvasservice.Service
	upgrader *websocket.Upgrader
}
