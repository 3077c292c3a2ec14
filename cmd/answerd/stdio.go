package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fyrsmithlabs/answerd/internal/config"
	"github.com/fyrsmithlabs/answerd/internal/logging"
	"github.com/fyrsmithlabs/answerd/internal/mcp"
	"github.com/fyrsmithlabs/answerd/internal/services"
)

// runStdioServer serves the session as MCP tools on stdin/stdout.
//
// stdout carries the protocol, so structured logs are disabled and the
// startup notice goes to stderr.
func runStdioServer(ctx context.Context, cfg *config.Config) error {
	reg, err := services.Build(ctx, cfg, services.BuildOptions{Logger: logging.NewNop()})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	srv, err := mcp.NewServer(&mcp.Config{Name: "answerd", Version: version}, reg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	fmt.Fprintf(os.Stderr, "answerd stdio mode started (knowledge: %s)\n", reg.Knowledge().Path())
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("stdio server error: %w", err)
	}
	return nil
}
