package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/scrubber/config"
	"github.com/use-agent/scrubber/scrubber"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol; logs go to stderr.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	s, err := scrubber.NewFromConfig(cfg, slog.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise scrubber: %v\n", err)
		os.Exit(1)
	}

	if err := server.ServeStdio(newServer(s)); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
