package mcpgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/auth"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"

	"github.com/vikashloomba/mcptools-go/pkg/mcptools"
)

const (
	metaKeyServerID   = "mcptools.server_id"
	metaKeyNativeName = "mcptools.native_name"

	protectedResourcePath = "/.well-known/oauth-protected-resource"
	shutdownTimeout       = 30 * time.Second
)

// Gateway exposes a Streamable MCP server that fronts every tool of an
// mcptools.Result under a single HTTP endpoint.
type Gateway struct {
	result *mcptools.Result
	opts   Options

	server        *mcp.Server
	streamHandler *mcp.StreamableHTTPHandler
	mux           *http.ServeMux
	httpHandler   http.Handler

	httpServerMu sync.Mutex
	httpServer   *http.Server
}

// NewGateway registers every tool in result on a new MCP server. The gateway
// does not own result; callers still call result.Teardown after the gateway
// has stopped.
func NewGateway(result *mcptools.Result, opts *Options) (*Gateway, error) {
	if result == nil {
		return nil, fmt.Errorf("mcpgateway: result is required")
	}
	options := opts.withDefaults()
	if options.TokenOptions != nil && options.TokenVerifier == nil {
		return nil, fmt.Errorf("mcpgateway: TokenOptions requires TokenVerifier")
	}
	g := &Gateway{
		result: result,
		opts:   options,
		mux:    http.NewServeMux(),
	}

	g.server = mcp.NewServer(options.Implementation, &mcp.ServerOptions{HasTools: true})
	registered := 0
	for _, tool := range result.Tools {
		exposed, err := exposedTool(tool)
		if err != nil {
			options.Logger.Warn("skipping tool", "tool", tool.Name, "server", tool.ServerID, "error", err)
			continue
		}
		g.server.AddTool(exposed, g.makeToolHandler(tool))
		registered++
	}
	g.streamHandler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return g.server
	}, &options.Streamable)
	g.httpHandler = g.mountHandler()

	options.Logger.Info("gateway tools registered", "tools", registered, "skipped", len(result.Tools)-registered)
	return g, nil
}

// Handler exposes the HTTP handler that serves the Streamable endpoint.
func (g *Gateway) Handler() http.Handler {
	return g.httpHandler
}

// ServeMux exposes the mux the MCP endpoint is mounted on so callers can add
// routes such as health checks.
func (g *Gateway) ServeMux() *http.ServeMux {
	return g.mux
}

// Options returns the effective options after defaults were applied.
func (g *Gateway) Options() Options {
	return g.opts
}

// ListenAndServe runs an HTTP server until the provided context is cancelled or
// the server stops.
func (g *Gateway) ListenAndServe(ctx context.Context) error {
	g.httpServerMu.Lock()
	if g.httpServer != nil {
		serv := g.httpServer
		g.httpServerMu.Unlock()
		return fmt.Errorf("mcpgateway: server already running on %s", serv.Addr)
	}
	srv := &http.Server{Addr: g.opts.Addr, Handler: g.Handler()}
	g.httpServer = srv
	g.httpServerMu.Unlock()
	defer func() {
		g.httpServerMu.Lock()
		if g.httpServer == srv {
			g.httpServer = nil
		}
		g.httpServerMu.Unlock()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops the embedded HTTP server if it is running.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.httpServerMu.Lock()
	srv := g.httpServer
	g.httpServer = nil
	g.httpServerMu.Unlock()
	if srv == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return srv.Shutdown(ctx)
}

func (g *Gateway) makeToolHandler(tool *mcptools.Tool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var raw json.RawMessage
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}
		text, err := tool.InvokeJSON(ctx, raw)
		if err != nil {
			g.logError("tool call", err, "tool", tool.Name, "server", tool.ServerID)
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
			}, nil
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}, nil
	}
}

func exposedTool(tool *mcptools.Tool) (*mcp.Tool, error) {
	schema, err := objectSchema(tool.InputSchema)
	if err != nil {
		return nil, err
	}
	return &mcp.Tool{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: schema,
		Meta: map[string]any{
			metaKeyServerID:   tool.ServerID,
			metaKeyNativeName: tool.NativeName,
		},
	}, nil
}

// objectSchema converts an upstream input schema into a JSON object schema.
// Servers often omit "type" on schemas such as {} or {"properties": ...};
// those are completed with "type": "object". Schemas of any other type cannot
// describe tool arguments and are rejected.
func objectSchema(raw any) (map[string]any, error) {
	schema := map[string]any{}
	if raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("encode input schema: %w", err)
		}
		if string(data) != "null" {
			if err := json.Unmarshal(data, &schema); err != nil {
				return nil, fmt.Errorf("input schema is not a JSON object: %w", err)
			}
		}
		if schema == nil {
			schema = map[string]any{}
		}
	}
	switch typ := schema["type"]; typ {
	case nil:
		schema["type"] = "object"
	case "object":
	default:
		return nil, fmt.Errorf("input schema has type %v, want object", typ)
	}
	return schema, nil
}

func (g *Gateway) mountHandler() http.Handler {
	path := g.opts.Path
	var endpoint http.Handler = g.streamHandler
	if g.opts.TokenVerifier != nil {
		endpoint = auth.RequireBearerToken(g.opts.TokenVerifier, g.opts.TokenOptions)(endpoint)
	}
	g.mux.Handle(path, endpoint)
	if !strings.HasSuffix(path, "/") {
		g.mux.Handle(path+"/", endpoint)
	}
	if g.opts.TokenOptions != nil && g.opts.TokenOptions.ResourceMetadataURL != "" {
		g.mux.Handle(protectedResourcePath, cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		}).Handler(http.HandlerFunc(g.serveProtectedResource)))
	}
	if g.opts.CORS != nil {
		return cors.New(*g.opts.CORS).Handler(g.mux)
	}
	return g.mux
}

// serveProtectedResource answers OAuth 2.0 protected resource metadata
// (RFC 9728) requests for the MCP endpoint.
func (g *Gateway) serveProtectedResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	doc := map[string]any{"resource": g.resourceURL(r)}
	if g.opts.AuthorizationServer != "" {
		doc["authorization_servers"] = []string{g.opts.AuthorizationServer}
	}
	if g.opts.TokenOptions != nil && len(g.opts.TokenOptions.Scopes) > 0 {
		doc["scopes_supported"] = g.opts.TokenOptions.Scopes
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		g.logError("write protected resource metadata", err)
	}
}

func (g *Gateway) resourceURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: g.opts.Path}
	return u.String()
}

func (g *Gateway) logError(msg string, err error, args ...any) {
	if err == nil {
		return
	}
	attrs := append([]any{"error", err}, args...)
	g.opts.Logger.Error(msg, attrs...)
}
