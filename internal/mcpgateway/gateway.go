package mcpgateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/opencanvas/canvasd/internal/canvasservice"
	"github.com/opencanvas/canvasd/internal/telemetry"
)

// toolHandler is the shape of every catalogue entry: it receives the raw
// tools/call arguments and the service to operate on, and returns a
// ToolResult or an error (mapped to IsError:true on the wire).
type toolHandler func(ctx context.Context, svc *canvasservice.Service, args json.RawMessage) (ToolResult, error)

// Gateway serves the stateless POST /mcp JSON-RPC endpoint: tools/list
// enumerates the catalogue, tools/call dispatches to one handler.
type Gateway struct {
	svc     *canvasservice.Service
	tools   map[string]toolHandler
	catalog []ToolDescriptor
}

// New constructs a Gateway bound to svc, with the full closed tool
// catalogue registered.
func New(svc *canvasservice.Service) *Gateway {
	g := &Gateway{svc: svc, tools: make(map[string]toolHandler)}
	g.register()
	return g
}

func (g *Gateway) add(name, description string, fn toolHandler) {
	g.tools[name] = fn
	g.catalog = append(g.catalog, ToolDescriptor{Name: name, Description: description})
}

// ServeHTTP implements the POST /mcp transport: it accepts a single
// JSON-RPC request object, dispatches it, and writes the response. It never
// returns a non-2xx status for a JSON-RPC-level error — those are carried
// in the response body's error field, per the protocol.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, errorResponse(nil, JSONRPCParseError, "invalid JSON-RPC request: "+err.Error()))
		return
	}
	resp := g.dispatch(r.Context(), req)
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (g *Gateway) dispatch(ctx context.Context, req Request) Response {
	switch req.Method {
	case "tools/list":
		return resultResponse(req.ID, map[string]any{"tools": g.catalog})
	case "tools/call":
		return g.callTool(ctx, req)
	default:
		return errorResponse(req.ID, JSONRPCMethodNotFound, "unknown method "+req.Method)
	}
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (g *Gateway) callTool(ctx context.Context, req Request) Response {
	var params callParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, JSONRPCInvalidParams, "invalid tools/call params: "+err.Error())
		}
	}
	handler, ok := g.tools[params.Name]
	if !ok {
		return errorResponse(req.ID, JSONRPCMethodNotFound, "unknown tool "+params.Name)
	}

	ctx, finish := telemetry.StartSpan(ctx, "mcpgateway.tools/call."+params.Name)
	result, err := handler(ctx, g.svc, params.Arguments)
	finish(err)

	status := "ok"
	if err != nil {
		status = "error"
		result = errorResult(err.Error())
	}
	telemetry.ToolCallsTotal.WithLabelValues(params.Name, status).Inc()
	return resultResponse(req.ID, result)
}
