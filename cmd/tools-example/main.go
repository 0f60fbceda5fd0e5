package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/vikashloomba/mcptools-go/pkg/mcptools"
)

func main() {
	ctx := context.Background()

	tools, teardown, err := mcptools.ConvertTools(ctx, map[string]mcptools.ServerConfig{
		"everything": &mcptools.StdioServerConfig{
			BaseServerConfig: mcptools.BaseServerConfig{Timeout: 15 * time.Second},
			Command:          "npx",
			Args:             []string{"-y", "@modelcontextprotocol/server-everything"},
		},
		"fetch": &mcptools.StdioServerConfig{
			Command: "uvx",
			Args:    []string{"mcp-server-fetch"},
		},
	}, &mcptools.Options{ClientName: "tools-example"})
	if err != nil {
		log.Fatalf("convert tools: %v", err)
	}
	defer func() {
		if err := teardown(context.Background()); err != nil {
			log.Printf("teardown: %v", err)
		}
	}()

	for _, tool := range tools {
		fmt.Printf("%-32s %s\n", tool.Name, tool.Description)
	}

	for _, tool := range tools {
		if tool.NativeName != "echo" {
			continue
		}
		out, err := tool.Invoke(ctx, map[string]any{"message": "hello from tools-example"})
		if err != nil {
			log.Printf("%s: %v", tool.Name, err)
			continue
		}
		fmt.Println(out)
	}
}
