package main

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/answerd/internal/config"
	"github.com/fyrsmithlabs/answerd/internal/knowledge"
	"github.com/fyrsmithlabs/answerd/internal/logging"
	"github.com/fyrsmithlabs/answerd/internal/services"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !verbose {
		return logging.NewNop(), nil
	}
	lc, err := logging.FromSettings(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(lc, nil)
}

// openServices wires a full local session from the config.
func openServices(ctx context.Context) (services.Registry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	// A one-shot CLI process has nobody else editing the file.
	cfg.Knowledge.Watch = false

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	return services.Build(ctx, cfg, services.BuildOptions{Logger: logger})
}

// openStore opens only the knowledge file.
func openStore() (*knowledge.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	path, err := config.ExpandPath(cfg.Knowledge.Path)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	return knowledge.Open(path, knowledge.WithLogger(logger.Underlying().Named("knowledge")))
}
