package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rs/cors"
	"github.com/urfave/cli/v3"

	mcpgateway "github.com/vikashloomba/mcptools-go/pkg/mcp-gateway"
)

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "Serve the combined tools over Streamable HTTP",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "listen",
			Aliases: []string{"l"},
			Usage:   "Address to listen on",
			Value:   ":8700",
			Sources: cli.EnvVars("MCPTOOLS_LISTEN"),
		},
		&cli.StringFlag{
			Name:  "path",
			Usage: "HTTP path of the MCP endpoint",
			Value: "/mcp",
		},
		&cli.StringSliceFlag{
			Name:  "cors-origin",
			Usage: "Allow browser clients from this origin (repeatable, * for any)",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) (err error) {
		result, err := startServers(ctx, cmd)
		if err != nil {
			return err
		}
		defer teardown(result, &err)

		for label, serverErr := range result.Errors {
			slog.Warn("server unavailable", "server", label, "error", serverErr)
		}

		opts := &mcpgateway.Options{
			Addr:   cmd.String("listen"),
			Path:   cmd.String("path"),
			Logger: slog.Default().With("component", "gateway"),
		}
		if origins := cmd.StringSlice("cors-origin"); len(origins) > 0 {
			opts.CORS = &cors.Options{
				AllowedOrigins: origins,
				AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"*"},
				ExposedHeaders: []string{"Mcp-Session-Id"},
			}
		}
		gateway, err := mcpgateway.NewGateway(result, opts)
		if err != nil {
			return fmt.Errorf("failed to build gateway: %w", err)
		}

		effective := gateway.Options()
		fmt.Fprintf(cmd.Root().Writer, "%s %s%s\n",
			headerStyle.Render(fmt.Sprintf("serving %d tools on", len(result.Tools))),
			effective.Addr, effective.Path)

		if err := gateway.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
