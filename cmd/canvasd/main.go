package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"goa.design/clue/log"

	"github.com/opencanvas/canvasd/internal/canvasservice"
	"github.com/opencanvas/canvasd/internal/config"
	"github.com/opencanvas/canvasd/internal/httpapi"
	"github.com/opencanvas/canvasd/internal/mcpgateway"
	"github.com/opencanvas/canvasd/internal/supervisor"
	"github.com/opencanvas/canvasd/internal/telemetry"
)

func main() {
	cfg := config.Parse()

	ctx := telemetry.NewContext(context.Background(), cfg.Debug)
	if cfg.Debug {
		log.Debugf(ctx, "debug logs enabled")
	}

	svc := canvasservice.New()
	gateway := mcpgateway.New(svc)
	handler := httpapi.NewRouter(svc, httpapi.Options{Debug: cfg.Debug, MCP: gateway})

	var sup *supervisor.Supervisor
	if cfg.MCPServerPath != "" {
		port := cfg.Port
		p, err := parsePort(port)
		if err == nil {
			if s, ok := supervisor.New(supervisor.Options{Candidates: []string{cfg.MCPServerPath}, Port: p}); ok {
				sup = s
			}
		}
	}

	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)

	if sup != nil {
		if err := sup.Start(ctx, func(line string) {
			telemetry.Info(ctx, "mcp child", telemetry.KV("line", line))
		}); err != nil {
			telemetry.Warn(ctx, "mcp child supervisor failed to start", telemetry.KV("error", err.Error()))
			sup = nil
		}
	}

	handleHTTPServer(ctx, net.JoinHostPort(cfg.Host, cfg.Port), handler, &wg, errc)

	log.Printf(ctx, "exiting (%v)", <-errc)

	cancel()
	if sup != nil {
		sup.Stop()
	}

	wg.Wait()
	log.Printf(ctx, "exited")
}

func parsePort(port string) (int, error) {
	var p int
	_, err := fmt.Sscanf(port, "%d", &p)
	return p, err
}

// handleHTTPServer starts the HTTP server in a goroutine and arranges for
// its graceful shutdown when ctx is cancelled.
func handleHTTPServer(ctx context.Context, addr string, handler http.Handler, wg *sync.WaitGroup, errc chan error) {
	handler = log.HTTP(ctx)(handler)

	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 60 * time.Second}

	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			log.Printf(ctx, "HTTP server listening on %q", addr)
			errc <- srv.ListenAndServe()
		}()

		<-ctx.Done()
		log.Printf(ctx, "shutting down HTTP server at %q", addr)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf(ctx, "failed to shutdown: %v", err)
		}
	}()
}
