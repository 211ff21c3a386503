package toolrun

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/sdkprobe/core"
	"github.com/hupe1980/sdkprobe/logging"
	"github.com/hupe1980/sdkprobe/tool"
)

// CallRecord is one executed function call.
type CallRecord struct {
	Call     core.FunctionCall
	Response core.FunctionResponse
	// Err is the tool failure, if any. The failure text was still sent to
	// the model as the function response.
	Err      error
	Duration time.Duration
}

// executor runs a batch of function calls against a registry. Calls may run
// in parallel; records are returned in call order and exactly one record is
// produced per call.
type executor struct {
	registry    *tool.Registry
	maxParallel int
	logger      logging.Logger
}

func (e *executor) execute(ctx context.Context, calls []core.FunctionCall) []CallRecord {
	records := make([]CallRecord, len(calls))
	if len(calls) == 1 {
		records[0] = e.executeOne(ctx, calls[0])
		return records
	}

	g := new(errgroup.Group)
	if e.maxParallel > 0 {
		g.SetLimit(e.maxParallel)
	}

	batchStart := time.Now()
	for i, fc := range calls {
		g.Go(func() error {
			records[i] = e.executeOne(ctx, fc)
			return nil
		})
	}
	_ = g.Wait()

	e.logger.Debug(
		"toolrun.functions.batch.complete",
		"count", len(calls),
		"parallelism", e.maxParallel,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)
	return records
}

func (e *executor) executeOne(ctx context.Context, fc core.FunctionCall) (rec CallRecord) {
	rec.Call = fc
	start := time.Now()
	defer func() { rec.Duration = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		rec.Err = err
		rec.Response = core.FunctionResponse{ID: fc.ID, Name: fc.Name, Error: err.Error()}
		return rec
	}

	toolCtx := core.NewToolContext(ctx, fc.ID, e.logger)

	defer func() {
		if r := recover(); r != nil {
			err := panicError(r)
			toolCtx.LogError("toolrun.function.panic", "function", fc.Name, "recover", r)
			rec.Err = err
			rec.Response = core.FunctionResponse{ID: fc.ID, Name: fc.Name, Error: err.Error()}
		}
	}()

	resp, err := e.registry.Execute(toolCtx, fc)
	rec.Response = resp
	rec.Err = err

	e.logger.Info(
		"toolrun.function.executed",
		"function", fc.Name,
		"function_call_id", fc.ID,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)
	return rec
}

// PanicError is recorded when a tool panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string { return fmt.Sprintf("panic recovered: %v", p.Value) }

func panicError(r any) error { return &PanicError{Value: r, Stack: debug.Stack()} }
