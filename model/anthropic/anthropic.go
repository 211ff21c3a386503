package anthropic

import (
	"context"
	"encoding/json"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/sdkprobe/core"
	"github.com/hupe1980/sdkprobe/internal/util"
	"github.com/hupe1980/sdkprobe/logging"
	"github.com/hupe1980/sdkprobe/model"
)

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *Client
	logger logging.Logger
}

var _ model.Model = (*Model)(nil)

// NewModel creates a new Anthropic model using the official client.
func NewModel(optFns ...func(o *Options)) *Model {
	return NewModelFromClient(NewClient(optFns...))
}

// NewModelFromClient creates a new Anthropic model from an existing client.
func NewModelFromClient(client *Client) *Model {
	return &Model{client: client, logger: logging.NoOpLogger{}}
}

// WithLogger sets the logger used for call telemetry.
func (m *Model) WithLogger(l logging.Logger) *Model {
	m.logger = logging.OrNoOp(l)
	return m
}

// Generate sends req as a single Messages API call and emits the final response.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := anthropic.MessageNewParams{
			Messages: buildMessages(req.Contents),
		}
		if system := buildSystem(req); len(system) > 0 {
			params.System = system
		}
		if len(req.Tools) > 0 {
			params.Tools = buildTools(req.Tools)
		}

		start := time.Now()
		msg, err := m.client.Create(ctx, params, req.Extra)
		m.logCall(msg, time.Since(start), err)
		if err != nil {
			errCh <- err
			return
		}

		out <- toResponse(msg)
	}()

	return out, errCh
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          string(m.client.opts.Model),
		Provider:      ProviderName,
		SupportsTools: true,
	}
}

type llmCallLogger interface {
	LogLLMCall(model string, tokens int, dur time.Duration, success bool, err error)
}

func (m *Model) logCall(msg *anthropic.Message, dur time.Duration, err error) {
	tokens := 0
	if msg != nil {
		tokens = int(msg.Usage.InputTokens + msg.Usage.OutputTokens)
	}
	if l, ok := m.logger.(llmCallLogger); ok {
		l.LogLLMCall(string(m.client.opts.Model), tokens, dur, err == nil, err)
		return
	}
	if err != nil {
		m.logger.Warn("anthropic.call.failed", "error", err.Error())
	}
}

func toResponse(msg *anthropic.Message) model.Response {
	var parts []core.Part
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				parts = append(parts, core.TextPart{Text: block.Text})
			}
		case "tool_use":
			args := "{}"
			if len(block.Input) > 0 {
				args = string(block.Input)
			}
			parts = append(parts, core.FunctionCallPart{
				FunctionCall: core.FunctionCall{
					ID:        block.ID,
					Name:      block.Name,
					Arguments: args,
				},
			})
		}
	}

	in, outTokens := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	return model.Response{
		ID:           msg.ID,
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: string(msg.StopReason),
		Usage: &model.TokenUsage{
			PromptTokens:     in,
			CompletionTokens: outTokens,
			TotalTokens:      in + outTokens,
		},
		Raw: msg.RawJSON(),
	}
}

func buildSystem(req model.Request) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	if req.Instructions != "" {
		blocks = append(blocks, anthropic.TextBlockParam{Text: req.Instructions})
	}
	for _, c := range req.Contents {
		if c.Role != core.RoleSystem {
			continue
		}
		if text := c.Text(); text != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: text})
		}
	}
	return blocks
}

// buildMessages converts contents into Anthropic messages. Tool results are
// sent as tool_result blocks inside a user turn, and consecutive turns of the
// same role are merged since the API expects them to alternate.
func buildMessages(contents []core.Content) []anthropic.MessageParam {
	var messages []anthropic.MessageParam

	appendTurn := func(role anthropic.MessageParamRole, blocks []anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(messages); n > 0 && messages[n-1].Role == role {
			messages[n-1].Content = append(messages[n-1].Content, blocks...)
			return
		}
		messages = append(messages, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for _, c := range contents {
		switch c.Role {
		case core.RoleSystem:
			continue
		case core.RoleAssistant:
			appendTurn(anthropic.MessageParamRoleAssistant, assistantBlocks(c.Parts))
		case core.RoleTool:
			appendTurn(anthropic.MessageParamRoleUser, toolResultBlocks(c.Parts))
		default:
			appendTurn(anthropic.MessageParamRoleUser, userBlocks(c.Parts))
		}
	}

	return messages
}

func userBlocks(parts []core.Part) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	for _, p := range parts {
		switch part := p.(type) {
		case core.TextPart:
			if part.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			}
		case core.FunctionResponsePart:
			blocks = append(blocks, toolResultBlock(part.FunctionResponse))
		}
	}
	return blocks
}

func assistantBlocks(parts []core.Part) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	for _, p := range parts {
		switch part := p.(type) {
		case core.TextPart:
			if part.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			}
		case core.FunctionCallPart:
			var input any = map[string]any{}
			if args := part.FunctionCall.Arguments; args != "" {
				if raw := json.RawMessage(args); json.Valid(raw) {
					input = raw
				} else {
					input = map[string]any{"input": args}
				}
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(part.FunctionCall.ID, input, part.FunctionCall.Name))
		}
	}
	return blocks
}

func toolResultBlocks(parts []core.Part) []anthropic.ContentBlockParamUnion {
	var blocks []anthropic.ContentBlockParamUnion
	for _, p := range parts {
		if fr, ok := p.(core.FunctionResponsePart); ok {
			blocks = append(blocks, toolResultBlock(fr.FunctionResponse))
		}
	}
	return blocks
}

func toolResultBlock(fr core.FunctionResponse) anthropic.ContentBlockParamUnion {
	return anthropic.NewToolResultBlock(fr.ID, fr.ResultText(), fr.Error != "")
}

func buildTools(defs []model.ToolDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(defs))
	for i, def := range defs {
		schema := anthropic.ToolInputSchemaParam{
			Properties: util.Properties(def.Function.Parameters),
			Required:   util.RequiredFields(def.Function.Parameters),
		}
		tools[i] = anthropic.ToolUnionParamOfTool(schema, def.Function.Name)
		if def.Function.Description != "" {
			tools[i].OfTool.Description = anthropic.String(def.Function.Description)
		}
	}
	return tools
}
