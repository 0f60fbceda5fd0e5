package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss/tree"
	"github.com/urfave/cli/v3"

	"github.com/vikashloomba/mcptools-go/pkg/mcptools"
)

var toolsCmd = &cli.Command{
	Name:  "tools",
	Usage: "List the tools of every configured server",
	Action: func(ctx context.Context, cmd *cli.Command) (err error) {
		result, err := startServers(ctx, cmd)
		if err != nil {
			return err
		}
		defer teardown(result, &err)

		printTools(cmd.Root().Writer, result)
		return nil
	},
}

// printTools renders one tree per server in label order, with failed servers
// listed after them.
func printTools(w io.Writer, result *mcptools.Result) {
	byServer := make(map[string][]*mcptools.Tool)
	for _, tool := range result.Tools {
		byServer[tool.ServerID] = append(byServer[tool.ServerID], tool)
	}
	labels := make([]string, 0, len(byServer))
	for label := range byServer {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d tools from %d servers", len(result.Tools), len(labels))))
	for _, label := range labels {
		root := tree.Root(serverStyle.Render(label))
		for _, tool := range byServer[label] {
			line := toolStyle.Render(tool.Name)
			if desc := firstLine(tool.Description); desc != "" {
				line += "  " + descStyle.Render(desc)
			}
			root.Child(line)
		}
		fmt.Fprintln(w, root.String())
	}

	if len(result.Errors) == 0 {
		return
	}
	failed := make([]string, 0, len(result.Errors))
	for label := range result.Errors {
		failed = append(failed, label)
	}
	sort.Strings(failed)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d servers failed", len(failed))))
	for _, label := range failed {
		fmt.Fprintf(w, "  %s  %s\n", serverStyle.Render(label), errorStyle.Render(result.Errors[label].Error()))
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
