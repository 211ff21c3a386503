package testutil

import (
	"github.com/hupe1980/sdkprobe/core"
	"github.com/hupe1980/sdkprobe/model"
	"github.com/hupe1980/sdkprobe/tool"
)

// ResponseBuilder provides a fluent helper for constructing model responses
// in tests. Example:
//
//	resp := NewResponseBuilder().Text("Let me check.").Call(WeatherCall("toolu_1", "SF")).Build()
//
// Adding a call switches the default finish reason to "tool_use".
type ResponseBuilder struct {
	parts        []core.Part
	finishReason string
	usage        *model.TokenUsage
	hasCalls     bool
}

// NewResponseBuilder creates an empty assistant response builder.
func NewResponseBuilder() *ResponseBuilder { return &ResponseBuilder{} }

// Text appends a text part (chainable).
func (b *ResponseBuilder) Text(t string) *ResponseBuilder {
	b.parts = append(b.parts, core.TextPart{Text: t})
	return b
}

// Call appends a function call part (chainable).
func (b *ResponseBuilder) Call(c core.FunctionCall) *ResponseBuilder {
	b.parts = append(b.parts, core.FunctionCallPart{FunctionCall: c})
	b.hasCalls = true
	return b
}

// Finish overrides the finish reason (chainable).
func (b *ResponseBuilder) Finish(reason string) *ResponseBuilder { b.finishReason = reason; return b }

// Usage sets token usage; total is prompt + completion (chainable).
func (b *ResponseBuilder) Usage(prompt, completion int) *ResponseBuilder {
	b.usage = &model.TokenUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion}
	return b
}

// Build finalizes the response.
func (b *ResponseBuilder) Build() model.Response {
	reason := b.finishReason
	if reason == "" {
		reason = "end_turn"
		if b.hasCalls {
			reason = "tool_use"
		}
	}
	return model.Response{
		Content:      core.Content{Role: core.RoleAssistant, Parts: append([]core.Part(nil), b.parts...)},
		FinishReason: reason,
		Usage:        b.usage,
	}
}

// WeatherCall builds a call of the weather tool for location.
func WeatherCall(id, location string) core.FunctionCall {
	return core.FunctionCall{ID: id, Name: tool.WeatherToolName, Arguments: `{"location":"` + location + `"}`}
}
