// Package mcptools launches any number of Model Context Protocol (MCP) servers
// in parallel and turns the tools they advertise into plain Go values that can
// be invoked directly. It layers a per-server lifecycle on top of the
// modelcontextprotocol/go-sdk client so callers get one combined tool list and
// one teardown function instead of N sessions to babysit.
//
// # Core entry points
//
//   - Coordinator runs the parallel startup. Construct it with NewCoordinator
//     and call InitializeAll with a map of server labels to configs.
//   - ServerConfig (and the StdioServerConfig / HTTPServerConfig variants)
//     declare how each MCP server is launched or contacted.
//   - Result carries the combined Tools, the per-server Errors for servers that
//     failed to initialize, and Teardown, which closes every session.
//   - ConvertTools is the one-call form returning (tools, teardown, error).
//
// Every server is owned by a single goroutine from the moment its transport is
// dialed until its session is closed. InitializeAll returns once each of those
// goroutines has reported ready or failed; the goroutines then park until
// Teardown is called and release their own resources, session first, then
// transport. Teardown must be called; servers whose result is dropped without it
// keep their subprocesses until the process exits.
//
// Tool names are kept as advertised unless two servers expose the same name, in
// which case the colliding tools are prefixed with their server label (see
// ServerPrefixNamespace). Tool.ServerID and Tool.NativeName always identify the
// origin.
package mcptools
