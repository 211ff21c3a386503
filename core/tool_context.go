package core

import (
	"context"

	"github.com/hupe1980/sdkprobe/logging"
)

// ToolContext provides the surface handed to tool / function implementations
// invoked during a tool round. It binds the caller's context, the provider
// issued function call id and a logger.
type ToolContext struct {
	ctx            context.Context
	functionCallID string
	logger         logging.Logger
}

// NewToolContext constructs a tool context bound to ctx and functionCallID.
// A nil logger is replaced by logging.NoOpLogger.
func NewToolContext(ctx context.Context, functionCallID string, logger logging.Logger) *ToolContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ToolContext{
		ctx:            ctx,
		functionCallID: functionCallID,
		logger:         logging.OrNoOp(logger),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// LogDebug logs at debug level tagged with the function call id.
func (tc *ToolContext) LogDebug(msg string, args ...any) { tc.logger.Debug(msg, tc.tag(args)...) }

// LogWarn logs at warn level tagged with the function call id.
func (tc *ToolContext) LogWarn(msg string, args ...any) { tc.logger.Warn(msg, tc.tag(args)...) }

// LogError logs at error level tagged with the function call id.
func (tc *ToolContext) LogError(msg string, args ...any) { tc.logger.Error(msg, tc.tag(args)...) }

func (tc *ToolContext) tag(args []any) []any {
	return append([]any{"function_call_id", tc.functionCallID}, args...)
}
