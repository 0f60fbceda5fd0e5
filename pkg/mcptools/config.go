package mcptools

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RPCDirection represents the direction of an observed JSON-RPC message.
type RPCDirection string

const (
	RPCDirectionSend    RPCDirection = "send"
	RPCDirectionReceive RPCDirection = "receive"
)

// RPCLogEvent encapsulates JSON-RPC traffic for custom logging.
type RPCLogEvent struct {
	Direction RPCDirection
	Message   []byte
	ServerID  string
}

// RPCLogger is invoked for each JSON-RPC message when logging is enabled.
type RPCLogger func(RPCLogEvent)

// HTTPAuthProvider dynamically supplies an Authorization header (for example,
// "Bearer <token>") for outbound HTTP requests to a server.
type HTTPAuthProvider func(context.Context) (string, error)

// BaseServerConfig captures settings shared by all transport types.
type BaseServerConfig struct {
	ClientOptions mcp.ClientOptions
	// Timeout bounds transport dialing, the initialize handshake, and tool
	// enumeration. Tool calls are not bounded by it.
	Timeout    time.Duration
	Version    string
	LogJSONRPC bool
	RPCLogger  RPCLogger
}

// StdioServerConfig describes an MCP server launched as a subprocess that
// speaks JSON-RPC over its standard streams.
type StdioServerConfig struct {
	BaseServerConfig
	Command string
	Args    []string
	// Env is appended to the parent environment. PATH is always present in the
	// child, taken from the parent when Env does not set it.
	Env map[string]string
	Cwd string
}

func (c *StdioServerConfig) base() *BaseServerConfig { return &c.BaseServerConfig }

// HTTPServerConfig describes an MCP server reachable over Streamable HTTP or
// SSE.
type HTTPServerConfig struct {
	BaseServerConfig
	Endpoint     string
	Headers      http.Header
	HTTPClient   *http.Client
	AuthProvider HTTPAuthProvider
	MaxRetries   int
	// PreferSSE forces (true) or forbids (false) the SSE transport. When nil,
	// endpoints ending in "/sse" use SSE and everything else tries Streamable
	// HTTP first with SSE as the fallback.
	PreferSSE *bool
}

func (c *HTTPServerConfig) base() *BaseServerConfig { return &c.BaseServerConfig }

// ServerConfig is implemented by all transport-specific configurations.
type ServerConfig interface {
	base() *BaseServerConfig
}

// Options configures a Coordinator.
type Options struct {
	// ClientName is advertised during initialization. When empty, the server
	// label is used.
	ClientName string
	// ClientVersion controls the semantic version reported to servers.
	ClientVersion string
	// DefaultTimeout is applied whenever a server configuration omits an
	// explicit timeout.
	DefaultTimeout time.Duration
	// ClientOptions are merged under each server's BaseServerConfig options.
	ClientOptions mcp.ClientOptions
	// LogJSONRPC logs JSON-RPC traffic for all servers at debug level unless
	// RPCLogger is set.
	LogJSONRPC bool
	// RPCLogger receives JSON-RPC traffic; it takes precedence over LogJSONRPC.
	RPCLogger RPCLogger
	// Namespace resolves tool name collisions across servers. Defaults to
	// ServerPrefixNamespace{}.
	Namespace NamespaceStrategy
	// Dialer acquires transports. Defaults to an SDKDialer built from these
	// options.
	Dialer Dialer
	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o *Options) normalized() Options {
	if o == nil {
		o = &Options{}
	}
	opts := *o
	if opts.ClientVersion == "" {
		opts.ClientVersion = "1.0.0"
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 30 * time.Second
	}
	if opts.Namespace == nil {
		opts.Namespace = ServerPrefixNamespace{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Dialer == nil {
		opts.Dialer = &SDKDialer{
			ClientName:    opts.ClientName,
			ClientVersion: opts.ClientVersion,
			ClientOptions: opts.ClientOptions,
			LogJSONRPC:    opts.LogJSONRPC,
			RPCLogger:     opts.RPCLogger,
			Logger:        opts.Logger,
		}
	}
	return opts
}

func (o *Options) timeoutFor(cfg ServerConfig) time.Duration {
	if t := cfg.base().Timeout; t > 0 {
		return t
	}
	return o.DefaultTimeout
}
