package mcptools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Coordinator initializes MCP servers in parallel and aggregates their tools.
type Coordinator struct {
	options Options
}

// NewCoordinator constructs a Coordinator. Callers can provide nil options to
// fall back to sensible defaults.
func NewCoordinator(opts *Options) *Coordinator {
	return &Coordinator{options: opts.normalized()}
}

// TeardownFunc closes every session started by one InitializeAll call.
type TeardownFunc func(context.Context) error

// InitializeAll starts one goroutine per configured server, all at once, and
// returns after every server has either produced its tools or failed. Servers
// that failed are listed in Result.Errors and contribute no tools; the others
// stay connected until Result.Teardown is called.
//
// If ctx ends before every server is ready, the servers still pending are
// reported with ErrNotReady and their tools are discarded. They keep
// initializing in the background and are released by Teardown like the rest.
//
// The returned error is non-nil only for invalid input, in which case nothing
// was started.
func (c *Coordinator) InitializeAll(ctx context.Context, configs map[string]ServerConfig) (*Result, error) {
	labels := sortedLabels(configs)
	for _, label := range labels {
		if label == "" {
			return nil, fmt.Errorf("mcptools: empty server label")
		}
		if configs[label] == nil {
			return nil, fmt.Errorf("mcptools: missing configuration for %q", label)
		}
	}

	runID := uuid.NewString()
	logger := c.options.Logger.With("run", runID)
	opts := c.options
	opts.Logger = logger

	tasks := make([]*serverTask, 0, len(labels))
	for _, label := range labels {
		task, err := newServerTask(label, configs[label], &opts)
		if err != nil {
			return nil, fmt.Errorf("mcptools: lifecycle for %q: %w", label, err)
		}
		tasks = append(tasks, task)
	}
	for _, task := range tasks {
		go task.run(ctx)
	}

	result := &Result{
		Errors: make(map[string]error),
		tasks:  tasks,
		logger: logger,
	}
	ready := waitReady(ctx, tasks)

	for i, task := range tasks {
		switch {
		case !ready[i]:
			result.Errors[task.id] = serverError(ErrNotReady, task.id, context.Cause(ctx))
		case task.initErr != nil:
			result.Errors[task.id] = task.initErr
		default:
			result.Tools = append(result.Tools, task.tools...)
		}
	}
	assignToolNames(c.options.Namespace, result.Tools)

	logger.Info("servers initialized", "servers", len(tasks), "failed", len(result.Errors), "tools", len(result.Tools))
	for _, tool := range result.Tools {
		logger.Debug("tool", "name", tool.Name, "server", tool.ServerID)
	}
	return result, nil
}

// waitReady blocks until every task is ready or ctx ends, and reports which
// tasks were ready.
func waitReady(ctx context.Context, tasks []*serverTask) []bool {
	ready := make([]bool, len(tasks))
	for i, task := range tasks {
		select {
		case <-task.ready.Done():
			ready[i] = true
		case <-ctx.Done():
			for j := i; j < len(tasks); j++ {
				ready[j] = tasks[j].ready.IsSet()
			}
			return ready
		}
	}
	return ready
}

// ConvertTools initializes every server with default options and returns the
// combined tools together with the teardown that releases them.
func ConvertTools(ctx context.Context, configs map[string]ServerConfig, opts *Options) ([]*Tool, TeardownFunc, error) {
	result, err := NewCoordinator(opts).InitializeAll(ctx, configs)
	if err != nil {
		return nil, nil, err
	}
	return result.Tools, result.Teardown, nil
}

// Result is the combined outcome of InitializeAll.
type Result struct {
	// Tools holds the tools of every ready server, ordered by server label and
	// then by the order each server advertised them.
	Tools []*Tool
	// Errors maps the label of every server that failed to initialize to its
	// failure.
	Errors map[string]error

	tasks  []*serverTask
	logger *slog.Logger

	mu          sync.Mutex
	finished    bool
	teardownErr error
}

// Teardown signals every server to close and waits until each one has
// released its session and transport. Servers tear down independently; the
// returned error joins the ErrTeardown failures of all of them. Calling
// Teardown again returns the same error without releasing anything twice.
// If ctx ends first, ctx.Err() is returned and Teardown may be called again
// to keep waiting.
func (r *Result) Teardown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	for _, task := range r.tasks {
		task.teardown.Set()
	}
	for _, task := range r.tasks {
		select {
		case <-task.done.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.finished {
		var errs []error
		for _, task := range r.tasks {
			if task.teardownErr != nil {
				errs = append(errs, task.teardownErr)
			}
		}
		r.teardownErr = errors.Join(errs...)
		r.finished = true
		r.log().Info("servers closed", "servers", len(r.tasks), "failed", len(errs))
	}
	return r.teardownErr
}

func (r *Result) log() *slog.Logger {
	if r.logger == nil {
		return slog.Default()
	}
	return r.logger
}

// Tool returns the tool with the given combined name.
func (r *Result) Tool(name string) (*Tool, bool) {
	for _, t := range r.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// ToolsFor returns the tools contributed by one server.
func (r *Result) ToolsFor(serverID string) []*Tool {
	var tools []*Tool
	for _, t := range r.Tools {
		if t.ServerID == serverID {
			tools = append(tools, t)
		}
	}
	return tools
}

// States returns the current lifecycle state of every server.
func (r *Result) States() map[string]string {
	states := make(map[string]string, len(r.tasks))
	for _, task := range r.tasks {
		states[task.id] = task.state.GetState()
	}
	return states
}
