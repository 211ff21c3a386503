package toolrun

import (
	"context"
	"fmt"

	"github.com/hupe1980/sdkprobe/core"
	"github.com/hupe1980/sdkprobe/logging"
	"github.com/hupe1980/sdkprobe/model"
	"github.com/hupe1980/sdkprobe/tool"
)

// DefaultMaxIterations bounds the number of model calls.
const DefaultMaxIterations = 10

// Options configures a Runner.
type Options struct {
	// MaxIterations caps model calls. Two allows exactly one tool round
	// (request, execute, respond). The response of the last allowed call is
	// the final answer even if it still asks for tools.
	MaxIterations int
	// Instructions is sent as the system prompt.
	Instructions string
	// MaxParallel limits concurrent tool executions in a round; 0 means no limit.
	MaxParallel int
	Logger      logging.Logger
}

// Result is the outcome of a run.
type Result struct {
	// Final is the last assistant message.
	Final        core.Content
	FinishReason string
	// Direct is true when the model answered without calling a tool.
	Direct bool
	// Iterations counts model calls.
	Iterations int
	// Rounds counts tool rounds.
	Rounds int
	// LimitReached is set when the last allowed response still requested
	// tools; those calls were not executed.
	LimitReached bool
	Calls        []CallRecord
	Transcript   []core.Content
	Usage        model.TokenUsage
}

// Text returns the text of the final message.
func (r *Result) Text() string { return r.Final.Text() }

// Runner executes the tool calling loop for one model and registry.
type Runner struct {
	model    model.Model
	registry *tool.Registry
	opts     Options
	exec     *executor
}

// New creates a Runner.
func New(m model.Model, registry *tool.Registry, optFns ...func(o *Options)) *Runner {
	opts := Options{MaxIterations: DefaultMaxIterations}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations < 1 {
		opts.MaxIterations = 1
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if registry == nil {
		registry = tool.NewRegistry()
	}

	return &Runner{
		model:    m,
		registry: registry,
		opts:     opts,
		exec:     &executor{registry: registry, maxParallel: opts.MaxParallel, logger: opts.Logger},
	}
}

// Run asks prompt as a user message.
func (r *Runner) Run(ctx context.Context, prompt string) (*Result, error) {
	return r.RunContents(ctx, []core.Content{core.NewTextContent(core.RoleUser, prompt)})
}

// RunContents starts the loop from an existing conversation.
func (r *Runner) RunContents(ctx context.Context, contents []core.Content) (*Result, error) {
	res := &Result{Transcript: append([]core.Content(nil), contents...)}
	tools := r.registry.Definitions()
	info := r.model.Info()

	for {
		resp, err := r.generate(ctx, res.Transcript, tools)
		if err != nil {
			return res, fmt.Errorf("toolrun: %s call %d: %w", info.Provider, res.Iterations+1, err)
		}
		res.Iterations++
		res.accumulate(resp)

		calls := resp.Content.FunctionCalls()
		if len(calls) == 0 {
			res.Direct = res.Rounds == 0
			r.opts.Logger.Debug("toolrun.done", "provider", info.Provider, "iterations", res.Iterations, "rounds", res.Rounds)
			return res, nil
		}

		if res.Iterations >= r.opts.MaxIterations {
			res.LimitReached = true
			r.opts.Logger.Warn("toolrun.max_iterations", "provider", info.Provider, "max", r.opts.MaxIterations, "pending_calls", len(calls))
			return res, nil
		}

		records := r.exec.execute(ctx, calls)
		res.Rounds++
		res.Calls = append(res.Calls, records...)

		parts := make([]core.Part, 0, len(records))
		for _, rec := range records {
			parts = append(parts, core.FunctionResponsePart{FunctionResponse: rec.Response})
		}
		res.Transcript = append(res.Transcript, core.Content{Role: core.RoleTool, Parts: parts})

		if err := ctx.Err(); err != nil {
			return res, err
		}
	}
}

func (r *Runner) generate(ctx context.Context, contents []core.Content, tools []model.ToolDefinition) (*model.Response, error) {
	respCh, errCh := r.model.Generate(ctx, model.Request{
		Instructions: r.opts.Instructions,
		Contents:     contents,
		Tools:        tools,
	})
	return model.Collect(ctx, respCh, errCh)
}

func (r *Result) accumulate(resp *model.Response) {
	content := resp.Content
	if content.Role == "" {
		content.Role = core.RoleAssistant
	}
	r.Final = content
	r.FinishReason = resp.FinishReason
	r.Transcript = append(r.Transcript, content)
	if resp.Usage != nil {
		r.Usage.PromptTokens += resp.Usage.PromptTokens
		r.Usage.CompletionTokens += resp.Usage.CompletionTokens
		r.Usage.TotalTokens += resp.Usage.TotalTokens
	}
}
