package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Dialer acquires the transport for one server. The returned Conn is owned by
// the caller, which must Close it.
type Dialer interface {
	Dial(ctx context.Context, serverID string, cfg ServerConfig) (Conn, error)
}

// Conn is an established transport: a spawned subprocess or a connected
// stream. Sessions opened on it live inside its scope and must be closed
// before it.
type Conn interface {
	Open(ctx context.Context) (Session, error)
	Close() error
}

// Session is a connected MCP client session. *mcp.ClientSession satisfies it.
type Session interface {
	ListTools(ctx context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
	Close() error
}

// SDKDialer dials servers with the modelcontextprotocol/go-sdk transports.
type SDKDialer struct {
	// ClientName is advertised during initialization; the server label is used
	// when empty.
	ClientName    string
	ClientVersion string
	ClientOptions mcp.ClientOptions
	LogJSONRPC    bool
	RPCLogger     RPCLogger
	Logger        *slog.Logger
}

// Dial spawns the subprocess (stdio) or connects the stream (HTTP). For HTTP
// servers without an explicit transport preference, the SSE transport is kept
// as a fallback and tried if the Streamable HTTP handshake fails in Open.
func (d *SDKDialer) Dial(ctx context.Context, serverID string, cfg ServerConfig) (Conn, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	base := cfg.base()
	conn := &sdkConn{
		serverID: serverID,
		client:   d.newClient(serverID, base),
		logger:   d.resolveLogger(base),
	}
	switch c := cfg.(type) {
	case *StdioServerConfig:
		transport, err := buildStdioTransport(c)
		if err != nil {
			return nil, err
		}
		conn.primary = transport
	case *HTTPServerConfig:
		conn.primary, conn.fallback = buildHTTPTransports(c)
	}
	if err := conn.connect(ctx, conn.primary); err != nil {
		return nil, err
	}
	return conn, nil
}

func (d *SDKDialer) newClient(serverID string, base *BaseServerConfig) *mcp.Client {
	name := d.ClientName
	if name == "" {
		name = serverID
	}
	version := base.Version
	if version == "" {
		version = d.ClientVersion
	}
	if version == "" {
		version = "1.0.0"
	}
	opts := d.ClientOptions
	mergeClientOptions(&opts, &base.ClientOptions)
	return mcp.NewClient(&mcp.Implementation{Name: name, Version: version}, &opts)
}

func (d *SDKDialer) resolveLogger(base *BaseServerConfig) RPCLogger {
	if base.RPCLogger != nil {
		return base.RPCLogger
	}
	if d.RPCLogger != nil {
		return d.RPCLogger
	}
	if base.LogJSONRPC || d.LogJSONRPC {
		logger := d.Logger
		if logger == nil {
			logger = slog.Default()
		}
		return func(event RPCLogEvent) {
			logger.Debug("jsonrpc", "server", event.ServerID, "direction", strings.ToUpper(string(event.Direction)), "message", string(event.Message))
		}
	}
	return nil
}

func mergeClientOptions(dst, src *mcp.ClientOptions) {
	if src == nil {
		return
	}
	if src.CreateMessageHandler != nil {
		dst.CreateMessageHandler = src.CreateMessageHandler
	}
	if src.ElicitationHandler != nil {
		dst.ElicitationHandler = src.ElicitationHandler
	}
	if src.ToolListChangedHandler != nil {
		dst.ToolListChangedHandler = src.ToolListChangedHandler
	}
	if src.LoggingMessageHandler != nil {
		dst.LoggingMessageHandler = src.LoggingMessageHandler
	}
	if src.ProgressNotificationHandler != nil {
		dst.ProgressNotificationHandler = src.ProgressNotificationHandler
	}
	if src.KeepAlive != 0 {
		dst.KeepAlive = src.KeepAlive
	}
}

// sdkConn holds one live mcp.Connection. The session opened on it reuses that
// connection instead of dialing again, so the subprocess spawned in Dial is
// the one the session talks to.
type sdkConn struct {
	serverID string
	client   *mcp.Client
	logger   RPCLogger

	primary  mcp.Transport
	fallback mcp.Transport

	conn *onceConnection
}

// connect establishes the connection on a context that lives until Close.
// Transports bind their streams to the Connect context, so ctx only bounds the
// attempt itself.
func (c *sdkConn) connect(ctx context.Context, transport mcp.Transport) error {
	if c.logger != nil {
		transport = &loggingTransport{serverID: c.serverID, delegate: transport, logger: c.logger}
	}
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, cancel)
	raw, err := transport.Connect(connCtx)
	if !stop() {
		// ctx ended during the attempt and connCtx is already cancelled.
		if err == nil {
			_ = raw.Close()
			err = context.Cause(ctx)
		}
		return err
	}
	if err != nil {
		cancel()
		return err
	}
	c.conn = &onceConnection{Connection: raw, cancel: cancel}
	return nil
}

func (c *sdkConn) Open(ctx context.Context) (Session, error) {
	session, err := c.client.Connect(ctx, &connectedTransport{conn: c.conn}, nil)
	if err == nil {
		return session, nil
	}
	if c.fallback == nil {
		return nil, err
	}
	streamErr := err
	_ = c.conn.Close()
	if err := c.connect(ctx, c.fallback); err != nil {
		return nil, fmt.Errorf("streamable error: %v; sse error: %w", streamErr, err)
	}
	c.fallback = nil
	session, err = c.client.Connect(ctx, &connectedTransport{conn: c.conn}, nil)
	if err != nil {
		return nil, fmt.Errorf("streamable error: %v; sse error: %w", streamErr, err)
	}
	return session, nil
}

func (c *sdkConn) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// connectedTransport hands an already established connection to
// mcp.Client.Connect.
type connectedTransport struct {
	conn mcp.Connection
}

func (t *connectedTransport) Connect(context.Context) (mcp.Connection, error) {
	if t.conn == nil {
		return nil, errors.New("mcptools: connection already handed out")
	}
	conn := t.conn
	t.conn = nil
	return conn, nil
}

// onceConnection makes Close idempotent: the session closes the connection
// first and the transport scope closes it again afterwards.
type onceConnection struct {
	mcp.Connection
	cancel context.CancelFunc
	once   sync.Once
	err    error
}

func (c *onceConnection) Close() error {
	c.once.Do(func() {
		c.err = c.Connection.Close()
		if c.cancel != nil {
			c.cancel()
		}
	})
	return c.err
}

func buildStdioTransport(cfg *StdioServerConfig) (mcp.Transport, error) {
	if cfg.Command == "" {
		return nil, errMissingCommand
	}
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = cfg.Cwd
	cmd.Env = stdioEnv(cfg.Env)
	return &mcp.CommandTransport{Command: cmd}, nil
}

// stdioEnv inherits the parent environment, PATH included, and layers env on
// top. Launchers such as npx and uvx fail without PATH.
func stdioEnv(env map[string]string) []string {
	result := os.Environ()
	for _, k := range sortedLabels(env) {
		result = append(result, fmt.Sprintf("%s=%s", k, env[k]))
	}
	return result
}

func buildHTTPTransports(cfg *HTTPServerConfig) (primary, fallback mcp.Transport) {
	client := decorateHTTPClient(cfg.HTTPClient, cfg.Headers, cfg.AuthProvider)
	sse := &mcp.SSEClientTransport{Endpoint: cfg.Endpoint, HTTPClient: client}
	if shouldPreferSSE(cfg) {
		return sse, nil
	}
	streamable := &mcp.StreamableClientTransport{
		Endpoint:   cfg.Endpoint,
		HTTPClient: client,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.PreferSSE != nil {
		return streamable, nil
	}
	return streamable, sse
}

func shouldPreferSSE(cfg *HTTPServerConfig) bool {
	if cfg.PreferSSE != nil {
		return *cfg.PreferSSE
	}
	return strings.HasSuffix(strings.TrimSpace(cfg.Endpoint), "/sse")
}

func decorateHTTPClient(base *http.Client, headers http.Header, provider HTTPAuthProvider) *http.Client {
	if base == nil {
		base = http.DefaultClient
	}
	clone := *base
	clone.Transport = &headerDecorator{
		next:         defaultRoundTripper(base.Transport),
		headers:      cloneHeader(headers),
		authProvider: provider,
	}
	return &clone
}

func cloneHeader(h http.Header) http.Header {
	if len(h) == 0 {
		return nil
	}
	clone := make(http.Header, len(h))
	for k, values := range h {
		clone[k] = append([]string(nil), values...)
	}
	return clone
}

type headerDecorator struct {
	next         http.RoundTripper
	headers      http.Header
	authProvider HTTPAuthProvider
}

func (d *headerDecorator) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	for k, values := range d.headers {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if d.authProvider != nil && req.Header.Get("Authorization") == "" {
		token, err := d.authProvider(req.Context())
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", token)
		}
	}
	return d.next.RoundTrip(req)
}

func defaultRoundTripper(next http.RoundTripper) http.RoundTripper {
	if next != nil {
		return next
	}
	return http.DefaultTransport
}

type loggingTransport struct {
	serverID string
	delegate mcp.Transport
	logger   RPCLogger
}

func (t *loggingTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	conn, err := t.delegate.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return &loggingConnection{serverID: t.serverID, delegate: conn, logger: t.logger}, nil
}

type loggingConnection struct {
	serverID string
	delegate mcp.Connection
	logger   RPCLogger
	mu       sync.Mutex
}

func (c *loggingConnection) SessionID() string { return c.delegate.SessionID() }

func (c *loggingConnection) Read(ctx context.Context) (jsonrpc.Message, error) {
	msg, err := c.delegate.Read(ctx)
	if err == nil {
		c.emit(RPCDirectionReceive, msg)
	}
	return msg, err
}

func (c *loggingConnection) Write(ctx context.Context, msg jsonrpc.Message) error {
	if err := c.delegate.Write(ctx, msg); err != nil {
		return err
	}
	c.emit(RPCDirectionSend, msg)
	return nil
}

func (c *loggingConnection) Close() error { return c.delegate.Close() }

func (c *loggingConnection) emit(direction RPCDirection, msg jsonrpc.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	encoded, err := json.Marshal(msg)
	if err != nil {
		encoded = []byte(err.Error())
	}
	c.logger(RPCLogEvent{Direction: direction, Message: encoded, ServerID: c.serverID})
}
