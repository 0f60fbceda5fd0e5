package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

var callCmd = &cli.Command{
	Name:      "call",
	Usage:     "Invoke one tool with JSON arguments",
	ArgsUsage: "<tool> [json-arguments]",
	Action: func(ctx context.Context, cmd *cli.Command) (err error) {
		if cmd.Args().Len() < 1 {
			return fmt.Errorf("tool name required")
		}
		name := cmd.Args().Get(0)
		raw, err := callArguments(cmd.Args().Get(1))
		if err != nil {
			return err
		}

		result, err := startServers(ctx, cmd)
		if err != nil {
			return err
		}
		defer teardown(result, &err)

		tool, ok := result.Tool(name)
		if !ok {
			if serverErr, failed := result.Errors[serverOf(name)]; failed {
				return fmt.Errorf("tool %q unavailable: %w", name, serverErr)
			}
			return fmt.Errorf("unknown tool %q", name)
		}
		out, err := tool.InvokeJSON(ctx, raw)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.Root().Writer, out)
		return nil
	},
}

// callArguments checks that arg is a JSON object. An empty arg means no
// arguments.
func callArguments(arg string) (json.RawMessage, error) {
	if arg == "" {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(arg), &obj); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	return json.RawMessage(arg), nil
}

// serverOf guesses the server label of a prefixed tool name.
func serverOf(name string) string {
	if label, _, ok := strings.Cut(name, "__"); ok {
		return label
	}
	return name
}
