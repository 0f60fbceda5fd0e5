package mcptools

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by this package wraps exactly one of these
// together with its underlying cause, so both can be matched with errors.Is.
var (
	// ErrTransport reports that a subprocess could not be spawned or a network
	// endpoint could not be reached.
	ErrTransport = errors.New("transport failed")
	// ErrSession reports a failed MCP initialize handshake or protocol error.
	ErrSession = errors.New("session failed")
	// ErrEnumeration reports that tools/list failed on an established session.
	ErrEnumeration = errors.New("tool enumeration failed")
	// ErrInvocation reports a failed tool call. It is returned only to the
	// caller of Tool.Invoke.
	ErrInvocation = errors.New("tool invocation failed")
	// ErrTeardown reports that closing a session or transport failed.
	ErrTeardown = errors.New("teardown failed")
	// ErrNotReady marks servers that had not finished initializing when the
	// InitializeAll context ended.
	ErrNotReady = errors.New("server not ready")
	// ErrClosed is returned by Tool.Invoke after its server was torn down.
	ErrClosed = errors.New("session closed")
)

var (
	errMissingCommand    = errors.New("command missing")
	errMissingEndpoint   = errors.New("endpoint missing")
	errUnsupportedConfig = errors.New("unsupported config")
)

func serverError(kind error, serverID string, cause error) error {
	return fmt.Errorf("mcptools: %w: server %q: %w", kind, serverID, cause)
}

func toolError(serverID, toolName string, cause error) error {
	return fmt.Errorf("mcptools: %w: tool %q on server %q: %w", ErrInvocation, toolName, serverID, cause)
}
