// Package mcpgateway re-exports the combined tools of an mcptools.Result over
// a single Streamable MCP endpoint. Downstream clients connect to one host and
// call any tool of any upstream server by its combined name; each call is
// forwarded through mcptools.Tool.Invoke to the server that owns it.
package mcpgateway
