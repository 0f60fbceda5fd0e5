package mcptools

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoArgs struct {
	Text string `json:"text" jsonschema:"text to echo back"`
}

func newEchoServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "echo-server", Version: "1.0.0"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "echo", Description: "Echo the text"}, func(_ context.Context, _ *mcp.CallToolRequest, in echoArgs) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "echo: " + in.Text}}}, nil, nil
	})
	mcp.AddTool(server, &mcp.Tool{Name: "shout", Description: "Upper-case the text"}, func(_ context.Context, _ *mcp.CallToolRequest, in echoArgs) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: strings.ToUpper(in.Text)}}}, nil, nil
	})
	return server
}

// inMemoryDialer connects SDK clients to in-process servers through the same
// sdkConn used for real transports.
type inMemoryDialer struct {
	SDKDialer
	servers map[string]*mcp.Server

	mu       sync.Mutex
	sessions []*mcp.ServerSession
}

func (d *inMemoryDialer) Dial(ctx context.Context, serverID string, cfg ServerConfig) (Conn, error) {
	server, ok := d.servers[serverID]
	if !ok {
		return nil, errors.New("no such server")
	}
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.sessions = append(d.sessions, ss)
	d.mu.Unlock()

	base := cfg.base()
	conn := &sdkConn{
		serverID: serverID,
		client:   d.newClient(serverID, base),
		logger:   d.resolveLogger(base),
		primary:  clientTransport,
	}
	if err := conn.connect(ctx, conn.primary); err != nil {
		return nil, err
	}
	return conn, nil
}

func (d *inMemoryDialer) waitServerSessions(t *testing.T) {
	t.Helper()
	d.mu.Lock()
	sessions := append([]*mcp.ServerSession(nil), d.sessions...)
	d.mu.Unlock()
	for _, ss := range sessions {
		done := make(chan struct{})
		go func() {
			_ = ss.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("server session still open after teardown")
		}
	}
}

func TestSDKSessionEndToEnd(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		events []RPCLogEvent
	)
	dialer := &inMemoryDialer{
		SDKDialer: SDKDialer{
			ClientName: "mcptools-tests",
			RPCLogger: func(ev RPCLogEvent) {
				mu.Lock()
				events = append(events, ev)
				mu.Unlock()
			},
		},
		servers: map[string]*mcp.Server{
			"one": newEchoServer(),
			"two": newEchoServer(),
		},
	}
	opts := &Options{Dialer: dialer, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	result, err := NewCoordinator(opts).InitializeAll(ctx, map[string]ServerConfig{
		"one":     stdio("one"),
		"two":     stdio("two"),
		"missing": stdio("missing"),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, result.Errors["missing"], ErrTransport)
	require.Len(t, result.Tools, 4)

	tool, ok := result.Tool("one__echo")
	require.True(t, ok)
	out, err := tool.Invoke(ctx, map[string]any{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", out)

	shout, ok := result.Tool("two__shout")
	require.True(t, ok)
	out, err = shout.Invoke(ctx, map[string]any{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "HELLO", out)

	_, err = tool.Invoke(ctx, map[string]any{"text": 7})
	assert.ErrorIs(t, err, ErrInvocation)

	require.NoError(t, result.Teardown(ctx))
	dialer.waitServerSessions(t)
	assert.Equal(t, StateClosed, result.States()["one"])
	assert.Equal(t, StateClosed, result.States()["two"])

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)
	var sent, received bool
	for _, ev := range events {
		sent = sent || ev.Direction == RPCDirectionSend
		received = received || ev.Direction == RPCDirectionReceive
	}
	assert.True(t, sent && received, "both directions are logged")
}

func TestSDKDialerRejectsIncompleteConfigs(t *testing.T) {
	t.Parallel()

	d := &SDKDialer{}
	_, err := d.Dial(context.Background(), "s", &StdioServerConfig{})
	assert.ErrorIs(t, err, errMissingCommand)
	_, err = d.Dial(context.Background(), "h", &HTTPServerConfig{})
	assert.ErrorIs(t, err, errMissingEndpoint)
}

func TestStdioServerFailsWhenCommandMissing(t *testing.T) {
	t.Parallel()

	result, err := NewCoordinator(&Options{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		DefaultTimeout: 5 * time.Second,
	}).InitializeAll(context.Background(), map[string]ServerConfig{
		"ghost": &StdioServerConfig{Command: "mcptools-definitely-not-a-binary"},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, result.Errors["ghost"], ErrTransport)
	require.NoError(t, result.Teardown(context.Background()))
}

func TestStdioServerEverything(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tools, teardown, err := ConvertTools(context.Background(), map[string]ServerConfig{
		"everything": &StdioServerConfig{
			BaseServerConfig: BaseServerConfig{Timeout: 60 * time.Second},
			Command:          "npx",
			Args:             []string{"-y", "@modelcontextprotocol/server-everything"},
		},
	}, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, teardown(context.Background())) }()
	if len(tools) == 0 {
		t.Skip("npx or @modelcontextprotocol/server-everything unavailable")
	}
}

func TestBuildStdioTransport(t *testing.T) {
	t.Parallel()

	cfg := &StdioServerConfig{
		Command: "npx",
		Args:    []string{"@modelcontextprotocol/server-everything"},
		Env:     map[string]string{"MCP_SERVER_MODE": "stdio"},
		Cwd:     "/tmp",
	}

	transport, err := buildStdioTransport(cfg)
	require.NoError(t, err)

	cmdTransport, ok := transport.(*mcp.CommandTransport)
	require.True(t, ok, "expected CommandTransport, got %T", transport)

	expectedArgs := append([]string{cfg.Command}, cfg.Args...)
	assert.True(t, reflect.DeepEqual(cmdTransport.Command.Args, expectedArgs))
	assert.Equal(t, "/tmp", cmdTransport.Command.Dir)
	assert.Contains(t, cmdTransport.Command.Env, "MCP_SERVER_MODE=stdio")
	assert.True(t, hasEnvKey(cmdTransport.Command.Env, "PATH"), "PATH is inherited")
}

func TestDecorateHTTPClientAddsHeadersAndAuth(t *testing.T) {
	t.Parallel()

	headers := http.Header{"X-MCP-Source": []string{"mcptools-tests"}}
	providerCalled := false
	provider := func(ctx context.Context) (string, error) {
		providerCalled = true
		return "Bearer example-token", nil
	}

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "mcptools-tests", req.Header.Get("X-MCP-Source"))
		assert.Equal(t, "Bearer example-token", req.Header.Get("Authorization"))
		return &http.Response{
			StatusCode: http.StatusNoContent,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader("")),
			Request:    req,
		}, nil
	})

	decorated := decorateHTTPClient(&http.Client{Transport: rt}, headers, provider)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "https://example.com/mcp", nil)
	require.NoError(t, err)
	resp, err := decorated.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.True(t, providerCalled)
	assert.Empty(t, req.Header.Get("Authorization"), "caller's request is not mutated")
}

func TestHTTPTransportSelection(t *testing.T) {
	t.Parallel()

	primary, fallback := buildHTTPTransports(&HTTPServerConfig{Endpoint: "https://example.com/mcp"})
	assert.IsType(t, &mcp.StreamableClientTransport{}, primary)
	assert.IsType(t, &mcp.SSEClientTransport{}, fallback)

	primary, fallback = buildHTTPTransports(&HTTPServerConfig{Endpoint: "https://example.com/sse"})
	assert.IsType(t, &mcp.SSEClientTransport{}, primary)
	assert.Nil(t, fallback)

	noSSE := false
	primary, fallback = buildHTTPTransports(&HTTPServerConfig{Endpoint: "https://example.com/sse", PreferSSE: &noSSE})
	assert.IsType(t, &mcp.StreamableClientTransport{}, primary)
	assert.Nil(t, fallback)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func hasEnvKey(env []string, key string) bool {
	for _, item := range env {
		if strings.HasPrefix(item, key+"=") {
			return true
		}
	}
	return false
}
