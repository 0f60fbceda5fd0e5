package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool is one remote MCP tool exposed as a local callable.
type Tool struct {
	// Name is unique within the combined tool list.
	Name string
	// NativeName is the name advertised by the server.
	NativeName  string
	ServerID    string
	Description string
	// InputSchema is the JSON schema advertised for the tool's arguments.
	InputSchema any

	session Session
	schema  *jsonschema.Resolved
	closed  *atomic.Bool
	logger  *slog.Logger
}

func newTool(serverID string, remote *mcp.Tool, session Session, closed *atomic.Bool, logger *slog.Logger) *Tool {
	name := remote.Name
	if name == "" {
		name = "NO NAME"
	}
	t := &Tool{
		Name:        name,
		NativeName:  name,
		ServerID:    serverID,
		Description: remote.Description,
		InputSchema: remote.InputSchema,
		session:     session,
		closed:      closed,
		logger:      logger,
	}
	schema, err := resolveSchema(remote.InputSchema)
	if err != nil {
		logger.Debug("input schema not validated", "server", serverID, "tool", name, "error", err)
	}
	t.schema = schema
	return t
}

// Invoke calls the tool with args and returns its text content. Failures,
// including arguments that do not match InputSchema and results flagged as
// errors by the server, wrap ErrInvocation.
func (t *Tool) Invoke(ctx context.Context, args map[string]any) (string, error) {
	if t.closed != nil && t.closed.Load() {
		return "", toolError(t.ServerID, t.NativeName, ErrClosed)
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := t.validate(args); err != nil {
		return "", toolError(t.ServerID, t.NativeName, err)
	}
	t.logger.Info("tool received input", "server", t.ServerID, "tool", t.NativeName, "args", args)
	res, err := t.session.CallTool(ctx, &mcp.CallToolParams{Name: t.NativeName, Arguments: args})
	if err != nil {
		if t.closed != nil && t.closed.Load() {
			err = errors.Join(ErrClosed, err)
		}
		return "", toolError(t.ServerID, t.NativeName, err)
	}
	if res == nil {
		return "", toolError(t.ServerID, t.NativeName, errors.New("empty result"))
	}
	text := contentText(res.Content)
	if res.IsError {
		return "", toolError(t.ServerID, t.NativeName, errors.New(text))
	}
	t.logger.Info("tool received result", "server", t.ServerID, "tool", t.NativeName, "size", len(text))
	return text, nil
}

// InvokeJSON is Invoke with arguments given as a JSON object.
func (t *Tool) InvokeJSON(ctx context.Context, raw json.RawMessage) (string, error) {
	args, err := decodeArguments(raw)
	if err != nil {
		return "", toolError(t.ServerID, t.NativeName, err)
	}
	return t.Invoke(ctx, args)
}

func (t *Tool) validate(args map[string]any) error {
	if t.schema == nil {
		return nil
	}
	// Round-trip so numbers and nested values have their JSON shapes.
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	var instance map[string]any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	if err := t.schema.Validate(instance); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func resolveSchema(raw any) (*jsonschema.Resolved, error) {
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, err
	}
	// Validation follows the 2020-12 vocabulary; most servers advertise
	// draft-07 which is compatible for object/property checks.
	schema.Schema = ""
	return schema.Resolve(nil)
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}
	return args, nil
}

// contentText concatenates text content. Other content kinds are rendered as
// their JSON encoding since tools only return text here.
func contentText(content []mcp.Content) string {
	var b strings.Builder
	for _, c := range content {
		switch v := c.(type) {
		case *mcp.TextContent:
			b.WriteString(v.Text)
		default:
			data, err := json.Marshal(v)
			if err != nil {
				fmt.Fprintf(&b, "%v", v)
				continue
			}
			b.Write(data)
		}
	}
	return b.String()
}
