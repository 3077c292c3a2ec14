// Answerd is the answer resolution daemon.
//
// It loads the knowledge file, wires the fallback chain (stored answers,
// generative backend, static replies) and serves one conversation session
// over HTTP until interrupted.
//
// Configuration is loaded from ~/.config/answerd/config.yaml and
// ANSWERD_* environment variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults
//	answerd
//
//	# Use a different config file
//	answerd -config /etc/answerd/config.yaml
//
//	# Serve MCP tools on stdio
//	answerd mcp
//
//	# Configure via environment
//	ANSWERD_SERVER_HTTP_PORT=9292 ANSWERD_GENERATIVE_PROVIDER=disabled answerd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/answerd/internal/config"
	httpserver "github.com/fyrsmithlabs/answerd/internal/http"
	"github.com/fyrsmithlabs/answerd/internal/logging"
	"github.com/fyrsmithlabs/answerd/internal/services"
	"github.com/fyrsmithlabs/answerd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default ~/.config/answerd/config.yaml)")
	flag.Parse()
	args := flag.Args()

	mode := ""
	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		case "mcp":
			mode = "mcp"
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  answerd           Start the answerd daemon\n")
			fmt.Fprintf(os.Stderr, "  answerd mcp       Serve MCP tools on stdio\n")
			fmt.Fprintf(os.Stderr, "  answerd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if mode == "mcp" {
		if err := runStdioServer(ctx, cfg); err != nil {
			log.Fatalf("MCP server error: %v", err)
		}
		return
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("answerd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts answerd and blocks until ctx is cancelled.
//
//  1. Initializes telemetry and the logger
//  2. Builds the services (knowledge store, resolver, session)
//  3. Starts the HTTP server
//  4. Shuts down gracefully on context cancellation
func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Observability, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	logger, err := initLogger(cfg, tel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info(ctx, "Starting answerd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("knowledge", cfg.Knowledge.Path),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	reg, err := services.Build(ctx, cfg, services.BuildOptions{
		Logger:    logger,
		Telemetry: tel,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	srv, err := httpserver.NewServer(reg, logger.Underlying().Named("http"), &httpserver.Config{
		Host:    cfg.Server.Host,
		Port:    cfg.Server.Port,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	greeting := reg.Session().Start(ctx)
	logger.Info(ctx, "Session started",
		zap.String("session_id", reg.Session().ID()),
		zap.String("state", greeting.State.String()),
		logging.Utterance(greeting.Text))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// initLogger builds the structured logger, bridging to OTEL when telemetry
// is enabled.
func initLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	lc, err := logging.FromSettings(cfg.Logging)
	if err != nil {
		return nil, err
	}
	lc.Output.OTEL = tel.IsEnabled() && tel.LoggerProvider() != nil
	return logging.NewLogger(lc, tel.LoggerProvider())
}
