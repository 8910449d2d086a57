// Package telemetry wraps the ambient logging, metrics, and tracing stack
// shared by every facade: goa.design/clue/log for structured logging
// (grounded on example/cmd/assistant/main.go), github.com/prometheus/
// client_golang/prometheus/promauto for metrics (grounded on
// Jeeves-Cluster-Organization-jeeves-core's coreengine/observability/
// metrics.go), and go.opentelemetry.io/otel for request/tool-call tracing
// (grounded on runtime/agent/telemetry/clue.go's ClueTracer).
package telemetry

import (
	"context"

	"goa.design/clue/log"
)

// NewContext returns a logging context configured the way a clue-based
// binary typically configures its own: JSON format unless attached to a
// terminal, debug logs gated by a flag.
func NewContext(ctx context.Context, debug bool) context.Context {
	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx = log.Context(ctx, log.WithFormat(format))
	if debug {
		ctx = log.Context(ctx, log.WithDebug())
	}
	return ctx
}

// Info logs an info-level structured line.
func Info(ctx context.Context, msg string, kvs ...log.KV) {
	log.Print(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, fielders(kvs)...)...)
}

// Debug logs a debug-level structured line.
func Debug(ctx context.Context, msg string, kvs ...log.KV) {
	log.Debug(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, fielders(kvs)...)...)
}

// Warn logs a warning-level structured line.
func Warn(ctx context.Context, msg string, kvs ...log.KV) {
	log.Warn(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, fielders(kvs)...)...)
}

// Error logs err with an error-level structured line.
func Error(ctx context.Context, msg string, err error, kvs ...log.KV) {
	log.Error(ctx, err, append([]log.Fielder{log.KV{K: "msg", V: msg}}, fielders(kvs)...)...)
}

// KV constructs a structured logging field, so callers outside this package
// need not import goa.design/clue/log directly.
func KV(key string, value any) log.KV {
	return log.KV{K: key, V: value}
}

func fielders(kvs []log.KV) []log.Fielder {
	out := make([]log.Fielder, len(kvs))
	for i, kv := range kvs {
		out[i] = kv
	}
	return out
}
