package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// fakeServer scripts the behavior of one server behind fakeDialer.
type fakeServer struct {
	delay    time.Duration
	dialErr  error
	openErr  error
	listErr  error
	closeErr error
	tools    []*mcp.Tool
	// pages splits tools/list into several cursor pages when > 1.
	pages int
}

// fakeDialer records every transport and session it opens and closes.
type fakeDialer struct {
	servers map[string]fakeServer

	connOpened    atomic.Int32
	connClosed    atomic.Int32
	sessionOpened atomic.Int32
	sessionClosed atomic.Int32

	mu     sync.Mutex
	events map[string][]string
}

func newFakeDialer(servers map[string]fakeServer) *fakeDialer {
	return &fakeDialer{servers: servers, events: make(map[string][]string)}
}

func (d *fakeDialer) record(serverID, event string) {
	d.mu.Lock()
	d.events[serverID] = append(d.events[serverID], event)
	d.mu.Unlock()
}

func (d *fakeDialer) eventsFor(serverID string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events[serverID]...)
}

func (d *fakeDialer) Dial(ctx context.Context, serverID string, _ ServerConfig) (Conn, error) {
	srv := d.servers[serverID]
	if srv.delay > 0 {
		select {
		case <-time.After(srv.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if srv.dialErr != nil {
		return nil, srv.dialErr
	}
	d.connOpened.Add(1)
	d.record(serverID, "dial")
	return &fakeConn{dialer: d, id: serverID, srv: srv}, nil
}

type fakeConn struct {
	dialer *fakeDialer
	id     string
	srv    fakeServer
	closed atomic.Bool
}

func (c *fakeConn) Open(context.Context) (Session, error) {
	if c.srv.openErr != nil {
		return nil, c.srv.openErr
	}
	c.dialer.sessionOpened.Add(1)
	c.dialer.record(c.id, "open")
	return &fakeSession{conn: c}, nil
}

func (c *fakeConn) Close() error {
	if c.closed.Swap(true) {
		return errors.New("transport closed twice")
	}
	c.dialer.connClosed.Add(1)
	c.dialer.record(c.id, "close transport")
	return nil
}

type fakeSession struct {
	conn   *fakeConn
	closed atomic.Bool
	calls  atomic.Int32
}

func (s *fakeSession) ListTools(_ context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error) {
	srv := s.conn.srv
	if srv.listErr != nil {
		return nil, srv.listErr
	}
	if srv.pages <= 1 || len(srv.tools) == 0 {
		return &mcp.ListToolsResult{Tools: srv.tools}, nil
	}
	page := 0
	if params != nil && params.Cursor != "" {
		fmt.Sscanf(params.Cursor, "page-%d", &page)
	}
	size := (len(srv.tools) + srv.pages - 1) / srv.pages
	start := page * size
	end := min(start+size, len(srv.tools))
	res := &mcp.ListToolsResult{Tools: srv.tools[start:end]}
	if end < len(srv.tools) {
		res.NextCursor = fmt.Sprintf("page-%d", page+1)
	}
	return res, nil
}

func (s *fakeSession) CallTool(_ context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	s.calls.Add(1)
	if s.closed.Load() {
		return nil, errors.New("connection closed")
	}
	args, _ := params.Arguments.(map[string]any)
	switch params.Name {
	case "fail":
		return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: "boom"}}}, nil
	case "image":
		return &mcp.CallToolResult{Content: []mcp.Content{
			&mcp.TextContent{Text: "see: "},
			&mcp.ImageContent{MIMEType: "image/png", Data: []byte{1, 2}},
		}}, nil
	default:
		return &mcp.CallToolResult{Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s:%v", params.Name, args["text"])},
		}}, nil
	}
}

func (s *fakeSession) Close() error {
	if s.closed.Swap(true) {
		return errors.New("session closed twice")
	}
	s.conn.dialer.sessionClosed.Add(1)
	s.conn.dialer.record(s.conn.id, "close session")
	return s.conn.srv.closeErr
}

// remoteTool builds an mcp.Tool the way a client decodes it off the wire.
func remoteTool(name, schema string) *mcp.Tool {
	if schema == "" {
		schema = `{"type":"object"}`
	}
	var tool mcp.Tool
	raw := fmt.Sprintf(`{"name":%q,"description":"%s tool","inputSchema":%s}`, name, name, schema)
	if err := json.Unmarshal([]byte(raw), &tool); err != nil {
		panic(err)
	}
	return &tool
}

func remoteTools(names ...string) []*mcp.Tool {
	tools := make([]*mcp.Tool, 0, len(names))
	for _, n := range names {
		tools = append(tools, remoteTool(n, ""))
	}
	return tools
}

func stdio(command string) ServerConfig {
	return &StdioServerConfig{Command: command}
}

func testOptions(d Dialer) *Options {
	return &Options{
		Dialer: d,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
