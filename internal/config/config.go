// Package config parses the canvasd binary's command-line flags into a
// single Config value. Shaped after the flag-based configuration in
// cmd/assistant/main.go: string/bool flags parsed once in main, no
// environment-variable layer, no config file.
package config

import "flag"

// Config holds every flag canvasd accepts.
type Config struct {
	// Host is the interface the HTTP server binds to.
	Host string
	// Port is the HTTP server's listen port.
	Port string
	// Debug enables debug-level logging and mounts the /debug/pprof and
	// /debug log-enabler endpoints.
	Debug bool
	// MCPServerPath is a candidate path to a sibling stdio-transport MCP
	// binary to supervise. Empty disables the supervisor.
	MCPServerPath string
}

// Parse parses os.Args[1:] (via flag.CommandLine) into a Config.
func Parse() Config {
	var cfg Config
	flag.StringVar(&cfg.Host, "host", "localhost", "HTTP server host")
	flag.StringVar(&cfg.Port, "port", "3100", "HTTP server port")
	flag.BoolVar(&cfg.Debug, "debug", false, "enable debug logging and pprof endpoints")
	flag.StringVar(&cfg.MCPServerPath, "mcp-server", "", "path to a sibling stdio MCP binary to supervise (optional)")
	flag.Parse()
	return cfg
}
