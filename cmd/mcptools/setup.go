package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/vikashloomba/mcptools-go/internal/config"
	"github.com/vikashloomba/mcptools-go/internal/logging"
	"github.com/vikashloomba/mcptools-go/pkg/mcptools"
)

const teardownTimeout = 30 * time.Second

func setupLogger(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	logger, err := logging.New(logging.Format(cmd.String("log-format")), cmd.String("log-level"), cmd.Root().ErrWriter)
	if err != nil {
		return ctx, err
	}
	slog.SetDefault(logger)
	return ctx, nil
}

// startServers loads the configuration named by --config and initializes every
// server in it. The caller owns the returned result and must tear it down.
func startServers(ctx context.Context, cmd *cli.Command) (*mcptools.Result, error) {
	path := cmd.String("config")
	if path == "" {
		return nil, errors.New("a configuration file is required (--config or MCPTOOLS_CONFIG)")
	}
	file, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	configs, err := file.ServerConfigs()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opts := file.Options()
	if opts.ClientName == "" {
		opts.ClientName = "mcptools"
	}
	opts.Logger = slog.Default()
	return mcptools.NewCoordinator(opts).InitializeAll(ctx, configs)
}

// teardown releases every server, bounded by teardownTimeout, and folds the
// teardown error into err.
func teardown(result *mcptools.Result, err *error) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	if terr := result.Teardown(ctx); terr != nil {
		*err = errors.Join(*err, terr)
	}
}
