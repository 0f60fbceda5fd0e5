package mcptools

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/robbyt/go-fsm"
)

// serverTask owns one server from dial to close. Only its run goroutine
// touches the transport and session; other goroutines observe it through the
// ready, teardown, and done signals.
type serverTask struct {
	id      string
	cfg     ServerConfig
	dialer  Dialer
	timeout time.Duration
	logger  *slog.Logger
	state   *fsm.Machine

	ready    *signal
	teardown *signal
	done     *signal

	// Written before ready is set, read only after.
	tools   []*Tool
	initErr error
	// Written before done is set, read only after.
	teardownErr error

	closed atomic.Bool
}

func newServerTask(id string, cfg ServerConfig, opts *Options) (*serverTask, error) {
	logger := opts.Logger.With("server", id)
	machine, err := newLifecycle(logger.Handler())
	if err != nil {
		return nil, err
	}
	return &serverTask{
		id:       id,
		cfg:      cfg,
		dialer:   opts.Dialer,
		timeout:  opts.timeoutFor(cfg),
		logger:   logger,
		state:    machine,
		ready:    newSignal(),
		teardown: newSignal(),
		done:     newSignal(),
	}, nil
}

// run performs the whole lifecycle. The session and transport are released
// by this goroutine, after teardown is signaled, in reverse order of
// acquisition.
func (t *serverTask) run(ctx context.Context) {
	defer t.done.Set()

	conn, session, tools, err := t.acquire(ctx)
	if err != nil {
		t.initErr = err
		t.transition(StateFailed)
		t.logger.Error("initialization failed", "error", err)
		t.ready.Set()
		return
	}
	t.tools = tools
	t.transition(StateReady)
	t.ready.Set()

	<-t.teardown.Done()

	t.transition(StateTearingDown)
	t.closed.Store(true)
	t.teardownErr = t.release(session, conn)
	if t.teardownErr != nil {
		t.transition(StateError)
		t.logger.Error("teardown failed", "error", t.teardownErr)
		return
	}
	t.transition(StateClosed)
	t.logger.Info("session closed")
}

func (t *serverTask) acquire(parent context.Context) (Conn, Session, []*Tool, error) {
	t.logger.Info("initializing", "transport", TransportOf(t.cfg))
	ctx := context.WithoutCancel(parent)
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	conn, err := t.dialer.Dial(ctx, t.id, t.cfg)
	if err != nil {
		return nil, nil, nil, serverError(ErrTransport, t.id, err)
	}
	session, err := conn.Open(ctx)
	if err != nil {
		err = serverError(ErrSession, t.id, err)
		return nil, nil, nil, errors.Join(err, t.release(nil, conn))
	}
	t.logger.Info("connected")

	remote, err := listAllTools(ctx, session)
	if err != nil {
		err = serverError(ErrEnumeration, t.id, err)
		return nil, nil, nil, errors.Join(err, t.release(session, conn))
	}
	tools := make([]*Tool, 0, len(remote))
	for _, r := range remote {
		tools = append(tools, newTool(t.id, r, session, &t.closed, t.logger))
	}
	t.logger.Info("tools available", "count", len(tools))
	for _, tool := range tools {
		t.logger.Debug("tool", "name", tool.NativeName)
	}
	return conn, session, tools, nil
}

// release closes the session, then the transport, attempting both.
func (t *serverTask) release(session Session, conn Conn) error {
	var errs []error
	if session != nil {
		if err := session.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return serverError(ErrTeardown, t.id, errors.Join(errs...))
}

func (t *serverTask) transition(state string) {
	if err := t.state.Transition(state); err != nil {
		t.logger.Warn("unexpected lifecycle transition", "to", state, "error", err)
	}
}

func listAllTools(ctx context.Context, session Session) ([]*mcp.Tool, error) {
	var all []*mcp.Tool
	params := &mcp.ListToolsParams{}
	for {
		res, err := session.ListTools(ctx, params)
		if err != nil {
			if isMethodUnavailableError(err) {
				return all, nil
			}
			return nil, err
		}
		if res == nil {
			return all, nil
		}
		all = append(all, res.Tools...)
		if res.NextCursor == "" {
			return all, nil
		}
		params = &mcp.ListToolsParams{Cursor: res.NextCursor}
	}
}

// isMethodUnavailableError treats servers that do not implement tools/list as
// having no tools.
func isMethodUnavailableError(err error) bool {
	if err == nil {
		return false
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "method not found") ||
		strings.Contains(lower, "not implemented") ||
		strings.Contains(lower, "unimplemented") ||
		strings.Contains(lower, "does not support")
}
