package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/auth"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcpgateway "github.com/vikashloomba/mcptools-go/pkg/mcp-gateway"
	"github.com/vikashloomba/mcptools-go/pkg/mcptools"
)

func main() {
	authorizationUrl := os.Getenv("AUTHORIZATION_SERVER_URL")
	oauthResourceMetadataUrl := os.Getenv("OAUTH_RESOURCE_METADATA_URL")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := mcptools.NewCoordinator(&mcptools.Options{ClientName: "gateway-example"}).
		InitializeAll(ctx, map[string]mcptools.ServerConfig{
			"everything": &mcptools.StdioServerConfig{
				BaseServerConfig: mcptools.BaseServerConfig{Timeout: 15 * time.Second},
				Command:          "npx",
				Args:             []string{"-y", "@modelcontextprotocol/server-everything"},
			},
		})
	if err != nil {
		log.Fatalf("failed to initialize servers: %v", err)
	}
	defer func() {
		teardownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := result.Teardown(teardownCtx); err != nil {
			log.Printf("teardown: %v", err)
		}
	}()
	for id, err := range result.Errors {
		log.Printf("server %s unavailable: %v", id, err)
	}

	gatewayOpts := &mcpgateway.Options{
		Addr: ":8787",
		Path: "/mcp",
		Streamable: mcp.StreamableHTTPOptions{
			JSONResponse: true,
		},
	}
	if authorizationUrl != "" && oauthResourceMetadataUrl != "" {
		gatewayOpts.TokenVerifier = func(ctx context.Context, token string, req *http.Request) (*auth.TokenInfo, error) {
			// Validate token with your upstream authorization server.
			return &auth.TokenInfo{Expiration: time.Now().Add(time.Hour)}, nil
		}
		gatewayOpts.TokenOptions = &auth.RequireBearerTokenOptions{
			ResourceMetadataURL: oauthResourceMetadataUrl,
		}
		gatewayOpts.AuthorizationServer = authorizationUrl
	}

	gateway, err := mcpgateway.NewGateway(result, gatewayOpts)
	if err != nil {
		log.Printf("failed to build gateway: %v", err)
		return
	}

	gwOptions := gateway.Options()
	log.Printf("gateway serving %d tools on %s%s", len(result.Tools), gwOptions.Addr, gwOptions.Path)
	if err := gateway.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("gateway server stopped: %v", err)
	}
}
