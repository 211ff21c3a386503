package tool

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/sdkprobe/core"
	"github.com/hupe1980/sdkprobe/internal/util"
	"github.com/hupe1980/sdkprobe/model"
)

// Registry indexes tools by name and turns model issued function calls into
// function responses. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates a registry pre-populated with tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: map[string]Tool{}}
	for _, t := range tools {
		_ = r.Register(t)
	}
	return r
}

// ErrDuplicateTool is returned when a tool name is registered twice.
var ErrDuplicateTool = errors.New("tool already registered")

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Definitions returns the declarations sent to a model, in registration order.
func (r *Registry) Definitions() []model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]model.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Execute runs the tool matching call. The returned FunctionResponse always
// carries the call id and name; on failure Error is set and the *ToolError is
// returned as well so callers can decide whether to continue.
func (r *Registry) Execute(toolCtx *core.ToolContext, call core.FunctionCall) (core.FunctionResponse, error) {
	resp := core.FunctionResponse{ID: call.ID, Name: call.Name}
	start := time.Now()

	t, ok := r.Get(call.Name)
	if !ok {
		err := NewToolError(call.Name, "no tool registered under this name", CodeNotFound)
		resp.Error = err.Message
		logToolCall(toolCtx, call.Name, start, err)
		return resp, err
	}

	args, err := util.DecodeArguments(call.Arguments)
	if err != nil {
		toolErr := &ToolError{Tool: call.Name, Message: err.Error(), Code: CodeArguments, Details: err}
		resp.Error = toolErr.Message
		logToolCall(toolCtx, call.Name, start, toolErr)
		return resp, toolErr
	}

	result, err := t.Call(toolCtx, args)
	if err != nil {
		var toolErr *ToolError
		if !errors.As(err, &toolErr) {
			toolErr = &ToolError{Tool: call.Name, Message: err.Error(), Code: CodeExecution, Details: err}
		}
		resp.Error = toolErr.Message
		logToolCall(toolCtx, call.Name, start, toolErr)
		return resp, toolErr
	}

	resp.Response = result
	logToolCall(toolCtx, call.Name, start, nil)
	return resp, nil
}

type toolCallLogger interface {
	LogToolCall(tool string, dur time.Duration, success bool, err error)
}

func logToolCall(toolCtx *core.ToolContext, name string, start time.Time, err error) {
	if l, ok := toolCtx.Logger().(toolCallLogger); ok {
		l.LogToolCall(name, time.Since(start), err == nil, err)
		return
	}
	if err != nil {
		toolCtx.LogWarn("tool.execute.failed", "tool", name, "error", err.Error())
	}
}
