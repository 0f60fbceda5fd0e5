// Package config loads MCP server definitions from TOML or JSON files.
//
// Both formats share one layout, keyed by server label under "mcpServers" so
// JSON files written for desktop MCP hosts load unchanged:
//
//	[client]
//	name = "mcptools"
//	timeout = "30s"
//
//	[mcpServers.files]
//	command = "npx"
//	args = ["-y", "@modelcontextprotocol/server-filesystem", "${HOME}/notes"]
//
//	[mcpServers.search]
//	url = "https://search.example.com/mcp"
//	headers = { Authorization = "Bearer ${SEARCH_TOKEN}" }
//
// String values may reference environment variables as ${VAR} or
// ${VAR:default}.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vikashloomba/mcptools-go/pkg/mcptools"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported config format")
	ErrInvalidServer     = errors.New("invalid server entry")
	ErrMissingEnv        = errors.New("environment variable not defined")
)

// File is the decoded configuration file.
type File struct {
	Client  Client                 `toml:"client" json:"client"`
	Servers map[string]ServerEntry `toml:"mcpServers" json:"mcpServers"`
}

// Client carries coordinator-wide settings.
type Client struct {
	Name    string   `toml:"name" json:"name"`
	Version string   `toml:"version" json:"version"`
	Timeout Duration `toml:"timeout" json:"timeout"`
}

// ServerEntry describes one server. Exactly one of Command or URL is set.
type ServerEntry struct {
	Command string            `toml:"command" json:"command"`
	Args    []string          `toml:"args" json:"args"`
	Env     map[string]string `toml:"env" json:"env"`
	Cwd     string            `toml:"cwd" json:"cwd"`

	URL       string            `toml:"url" json:"url"`
	Headers   map[string]string `toml:"headers" json:"headers"`
	Transport string            `toml:"transport" json:"transport"`

	Timeout    Duration `toml:"timeout" json:"timeout"`
	LogJSONRPC bool     `toml:"log_jsonrpc" json:"logJsonRpc"`
}

// Duration is a time.Duration written as a Go duration string ("10s").
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Options returns coordinator options seeded from the client section.
func (f *File) Options() *mcptools.Options {
	return &mcptools.Options{
		ClientName:     f.Client.Name,
		ClientVersion:  f.Client.Version,
		DefaultTimeout: time.Duration(f.Client.Timeout),
	}
}

// ServerConfigs converts every entry, expanding environment references. All
// invalid entries are reported together.
func (f *File) ServerConfigs() (map[string]mcptools.ServerConfig, error) {
	configs := make(map[string]mcptools.ServerConfig, len(f.Servers))
	var errs []error
	for label, entry := range f.Servers {
		cfg, err := entry.serverConfig()
		if err != nil {
			errs = append(errs, fmt.Errorf("server %q: %w", label, err))
			continue
		}
		configs[label] = cfg
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return configs, nil
}

func (e ServerEntry) serverConfig() (mcptools.ServerConfig, error) {
	base := mcptools.BaseServerConfig{
		Timeout:    time.Duration(e.Timeout),
		LogJSONRPC: e.LogJSONRPC,
	}
	x := &expander{}
	switch {
	case e.Command != "" && e.URL != "":
		return nil, fmt.Errorf("%w: command and url are mutually exclusive", ErrInvalidServer)
	case e.Command != "":
		if len(e.Headers) > 0 || e.Transport != "" {
			return nil, fmt.Errorf("%w: headers and transport apply to url servers only", ErrInvalidServer)
		}
		cfg := &mcptools.StdioServerConfig{
			BaseServerConfig: base,
			Command:          x.expand(e.Command),
			Cwd:              x.expand(e.Cwd),
		}
		for _, arg := range e.Args {
			cfg.Args = append(cfg.Args, x.expand(arg))
		}
		if len(e.Env) > 0 {
			cfg.Env = make(map[string]string, len(e.Env))
			for k, v := range e.Env {
				cfg.Env[k] = x.expand(v)
			}
		}
		return cfg, x.err()
	case e.URL != "":
		cfg := &mcptools.HTTPServerConfig{
			BaseServerConfig: base,
			Endpoint:         x.expand(e.URL),
		}
		if len(e.Headers) > 0 {
			cfg.Headers = make(http.Header, len(e.Headers))
			for k, v := range e.Headers {
				cfg.Headers.Set(k, x.expand(v))
			}
		}
		switch strings.ToLower(e.Transport) {
		case "":
		case "sse":
			cfg.PreferSSE = boolPtr(true)
		case "streamable", "streamable-http", "http":
			cfg.PreferSSE = boolPtr(false)
		default:
			return nil, fmt.Errorf("%w: unknown transport %q", ErrInvalidServer, e.Transport)
		}
		return cfg, x.err()
	}
	return nil, fmt.Errorf("%w: one of command or url is required", ErrInvalidServer)
}

func boolPtr(v bool) *bool { return &v }
