package mistral

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go"

	"github.com/hupe1980/sdkprobe/core"
	"github.com/hupe1980/sdkprobe/logging"
	"github.com/hupe1980/sdkprobe/model"
)

// ErrNoChoices is returned when a completion carries no choices.
var ErrNoChoices = errors.New("mistral: completion has no choices")

// Model wraps Mistral chat completions behind the generic model.Model interface.
type Model struct {
	client *Client
	logger logging.Logger
}

var _ model.Model = (*Model)(nil)

// NewModel creates a new Mistral model.
func NewModel(optFns ...func(o *Options)) *Model {
	return NewModelFromClient(NewClient(optFns...))
}

// NewModelFromClient creates a new Mistral model from an existing client.
func NewModelFromClient(client *Client) *Model {
	return &Model{client: client, logger: logging.NoOpLogger{}}
}

// WithLogger sets the logger used for call telemetry.
func (m *Model) WithLogger(l logging.Logger) *Model {
	m.logger = logging.OrNoOp(l)
	return m
}

// Generate sends req as a single chat completion call and emits the first choice.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := openai.ChatCompletionNewParams{
			Messages: buildMessages(req),
		}
		if len(req.Tools) > 0 {
			params.Tools = buildTools(req.Tools)
			// tool_choice goes on the first request only, before any tool result.
			if !hasToolResults(req.Contents) {
				params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String("auto")}
			}
		}

		start := time.Now()
		resp, err := m.client.Complete(ctx, params, req.Extra)
		m.logCall(resp, time.Since(start), err)
		if err != nil {
			errCh <- err
			return
		}

		r, err := toResponse(resp)
		if err != nil {
			errCh <- err
			return
		}
		out <- r
	}()

	return out, errCh
}

// Info returns metadata describing this Mistral model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.client.opts.Model,
		Provider:      ProviderName,
		SupportsTools: true,
	}
}

type llmCallLogger interface {
	LogLLMCall(model string, tokens int, dur time.Duration, success bool, err error)
}

func (m *Model) logCall(resp *openai.ChatCompletion, dur time.Duration, err error) {
	tokens := 0
	if resp != nil {
		tokens = int(resp.Usage.TotalTokens)
	}
	if l, ok := m.logger.(llmCallLogger); ok {
		l.LogLLMCall(m.client.opts.Model, tokens, dur, err == nil, err)
		return
	}
	if err != nil {
		m.logger.Warn("mistral.call.failed", "error", err.Error())
	}
}

func toResponse(resp *openai.ChatCompletion) (model.Response, error) {
	if len(resp.Choices) == 0 {
		return model.Response{}, ErrNoChoices
	}
	choice := resp.Choices[0]

	var parts []core.Part
	if choice.Message.Content != "" {
		parts = append(parts, core.TextPart{Text: choice.Message.Content})
	}
	for _, tc := range choice.Message.ToolCalls {
		parts = append(parts, core.FunctionCallPart{
			FunctionCall: core.FunctionCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	return model.Response{
		ID:           resp.ID,
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: choice.FinishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
		Raw: resp.RawJSON(),
	}, nil
}

// buildMessages converts contents into chat messages. Each function response
// becomes its own tool message carrying the call id and the function name.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}

	for _, c := range req.Contents {
		switch c.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(c.Text()))
		case core.RoleAssistant:
			messages = append(messages, assistantMessage(c))
		case core.RoleTool:
			for _, p := range c.Parts {
				if fr, ok := p.(core.FunctionResponsePart); ok {
					messages = append(messages, toolMessage(fr.FunctionResponse))
				}
			}
		default:
			if text := c.Text(); text != "" {
				messages = append(messages, openai.UserMessage(text))
			}
		}
	}

	return messages
}

func assistantMessage(c core.Content) openai.ChatCompletionMessageParamUnion {
	calls := c.FunctionCalls()
	if len(calls) == 0 {
		return openai.AssistantMessage(c.Text())
	}

	msg := openai.ChatCompletionAssistantMessageParam{}
	msg.Content.OfString = openai.String(c.Text())
	for _, fc := range calls {
		msg.ToolCalls = append(msg.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: fc.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      fc.Name,
				Arguments: fc.Arguments,
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &msg}
}

func hasToolResults(contents []core.Content) bool {
	for _, c := range contents {
		if c.Role == core.RoleTool {
			return true
		}
	}
	return false
}

func toolMessage(fr core.FunctionResponse) openai.ChatCompletionMessageParamUnion {
	msg := openai.ToolMessage(fr.ResultText(), fr.ID)
	if fr.Name != "" {
		// Mistral expects the function name on tool messages.
		msg.OfTool.SetExtraFields(map[string]any{"name": fr.Name})
	}
	return msg
}

func buildTools(defs []model.ToolDefinition) []openai.ChatCompletionToolParam {
	tools := make([]openai.ChatCompletionToolParam, len(defs))
	for i, def := range defs {
		fn := openai.FunctionDefinitionParam{
			Name:       def.Function.Name,
			Parameters: openai.FunctionParameters(def.Function.Parameters),
		}
		if def.Function.Description != "" {
			fn.Description = openai.String(def.Function.Description)
		}
		tools[i] = openai.ChatCompletionToolParam{Function: fn}
	}
	return tools
}
