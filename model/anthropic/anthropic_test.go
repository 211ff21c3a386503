package anthropic

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/hupe1980/sdkprobe/core"
	"github.com/hupe1980/sdkprobe/fixture"
	"github.com/hupe1980/sdkprobe/mockhttp"
	"github.com/hupe1980/sdkprobe/model"
)

func newTestModel(tr *mockhttp.Transport) *Model {
	return NewModel(func(o *Options) {
		o.APIKey = fixture.PlaceholderAPIKey
		o.HTTPClient = tr.Client()
		o.MaxRetries = 0
	})
}

func generate(t *testing.T, m *Model, req model.Request) (*model.Response, error) {
	t.Helper()
	respCh, errCh := m.Generate(context.Background(), req)
	return model.Collect(context.Background(), respCh, errCh)
}

func userPrompt(text string) []core.Content {
	return []core.Content{core.NewTextContent(core.RoleUser, text)}
}

func TestModel_GenerateText(t *testing.T) {
	tr := mockhttp.NewTransport(mockhttp.JSON(fixture.AnthropicText("It is foggy.")))
	m := newTestModel(tr)

	resp, err := generate(t, m, model.Request{
		Instructions: "Be brief.",
		Contents:     userPrompt("What is the weather in SF?"),
	})
	require.NoError(t, err)

	assert.Equal(t, "It is foggy.", resp.Content.Text())
	assert.Equal(t, core.RoleAssistant, resp.Content.Role)
	assert.Equal(t, "end_turn", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 35, resp.Usage.TotalTokens)
	assert.True(t, gjson.Valid(resp.Raw))

	req, ok := tr.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "/v1/messages", req.Path)
	assert.Equal(t, fixture.PlaceholderAPIKey, req.Header.Get("X-Api-Key"))

	body := gjson.ParseBytes(req.Body)
	assert.Equal(t, string(DefaultModel), body.Get("model").String())
	assert.Equal(t, int64(1024), body.Get("max_tokens").Int())
	assert.Equal(t, "Be brief.", body.Get("system.0.text").String())
	assert.Equal(t, "user", body.Get("messages.0.role").String())
	assert.Equal(t, "What is the weather in SF?", body.Get("messages.0.content.0.text").String())
	assert.False(t, body.Get("tools").Exists())
}

func TestModel_GenerateToolUse(t *testing.T) {
	tr := mockhttp.NewTransport(mockhttp.JSON(fixture.AnthropicToolUse("getWeather", map[string]any{"location": "San Francisco, CA"})))
	m := newTestModel(tr)

	resp, err := generate(t, m, model.Request{
		Contents: userPrompt("What is the weather in SF?"),
		Tools: []model.ToolDefinition{{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        "getWeather",
				Description: "Get the weather at a specific location",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"location": map[string]any{"type": "string"},
					},
					"required": []string{"location"},
				},
			},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "tool_use", resp.FinishReason)
	calls := resp.Content.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "getWeather", calls[0].Name)
	assert.Contains(t, calls[0].ID, "toolu_")
	assert.JSONEq(t, `{"location":"San Francisco, CA"}`, calls[0].Arguments)

	req, _ := tr.LastRequest()
	tool := gjson.GetBytes(req.Body, "tools.0")
	assert.Equal(t, "getWeather", tool.Get("name").String())
	assert.Equal(t, "Get the weather at a specific location", tool.Get("description").String())
	assert.Equal(t, "object", tool.Get("input_schema.type").String())
	assert.Equal(t, "location", tool.Get("input_schema.required.0").String())
	assert.Equal(t, "string", tool.Get("input_schema.properties.location.type").String())
}

func TestModel_ToolResultsFollowToolUse(t *testing.T) {
	tr := mockhttp.NewTransport(mockhttp.JSON(fixture.AnthropicText("done")))
	m := newTestModel(tr)

	contents := []core.Content{
		core.NewTextContent(core.RoleUser, "What is the weather in SF?"),
		{Role: core.RoleAssistant, Parts: []core.Part{
			core.TextPart{Text: "Checking."},
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "toolu_1", Name: "getWeather", Arguments: `{"location":"SF"}`}},
		}},
		{Role: core.RoleTool, Parts: []core.Part{
			core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "toolu_1", Name: "getWeather", Response: "foggy"}},
		}},
	}

	_, err := generate(t, m, model.Request{Contents: contents})
	require.NoError(t, err)

	req, _ := tr.LastRequest()
	msgs := gjson.GetBytes(req.Body, "messages")
	require.Equal(t, int64(3), msgs.Get("#").Int())

	assert.Equal(t, "assistant", msgs.Get("1.role").String())
	assert.Equal(t, "tool_use", msgs.Get("1.content.1.type").String())
	assert.Equal(t, "toolu_1", msgs.Get("1.content.1.id").String())
	assert.Equal(t, "SF", msgs.Get("1.content.1.input.location").String())

	assert.Equal(t, "user", msgs.Get("2.role").String())
	assert.Equal(t, "tool_result", msgs.Get("2.content.0.type").String())
	assert.Equal(t, "toolu_1", msgs.Get("2.content.0.tool_use_id").String())
	assert.Equal(t, "foggy", msgs.Get("2.content.0.content.0.text").String())
}

func TestModel_ExtraFieldsAreSent(t *testing.T) {
	tr := mockhttp.NewTransport(mockhttp.JSON(fixture.AnthropicMessage()))
	m := newTestModel(tr)

	_, err := generate(t, m, model.Request{
		Contents: userPrompt("Tell me a fact"),
		Extra:    fixture.AnthropicUndocumentedParams(),
	})
	require.NoError(t, err)

	req, _ := tr.LastRequest()
	assert.Equal(t, fixture.UndocumentedValue, gjson.GetBytes(req.Body, fixture.UndocumentedParam).String())
}

func TestModel_UnknownStopReasonIsKept(t *testing.T) {
	body, err := fixture.WithEnum(fixture.AnthropicBase(), "stop_reason", "paused_for_review")
	require.NoError(t, err)

	m := newTestModel(mockhttp.NewTransport(mockhttp.JSON(body)))
	resp, err := generate(t, m, model.Request{Contents: userPrompt("hi")})
	require.NoError(t, err)
	assert.Equal(t, "paused_for_review", resp.FinishReason)
}

func TestModel_APIError(t *testing.T) {
	tr := mockhttp.NewTransport(mockhttp.Status(http.StatusBadRequest,
		`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens: field required"}}`))
	m := newTestModel(tr)

	_, err := generate(t, m, model.Request{Contents: userPrompt("hi")})
	require.Error(t, err)

	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ProviderName, apiErr.Provider)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "invalid_request_error", apiErr.Type)
	assert.Equal(t, "max_tokens: field required", apiErr.Message)
}

func TestModel_Info(t *testing.T) {
	m := NewModel(func(o *Options) { o.Model = "claude-test" })
	info := m.Info()
	assert.Equal(t, "claude-test", info.Name)
	assert.Equal(t, ProviderName, info.Provider)
	assert.True(t, info.SupportsTools)
}

func TestClient_CreateKeepsUndocumentedResponseFields(t *testing.T) {
	tr := mockhttp.NewTransport(mockhttp.JSON(fixture.AnthropicMessage()))
	c := NewClient(func(o *Options) {
		o.APIKey = fixture.PlaceholderAPIKey
		o.HTTPClient = tr.Client()
	})

	msg, err := c.Create(context.Background(), anthropicParams("Tell me a fact"), nil)
	require.NoError(t, err)

	field, ok := msg.JSON.ExtraFields[fixture.UndocumentedProperty]
	require.True(t, ok)
	assert.Equal(t, "This is a new feature from the API", gjson.Get(field.Raw(), "new_feature").String())
	assert.Equal(t, "msg_01ABC123", msg.ID)

	req, ok := tr.LastRequest()
	require.True(t, ok)
	assert.Equal(t, string(c.Options().Model), gjson.GetBytes(req.Body, "model").String())
	assert.Equal(t, c.Options().MaxTokens, gjson.GetBytes(req.Body, "max_tokens").Int())
}

func TestBuildMessages_MergesSameRoleTurns(t *testing.T) {
	msgs := buildMessages([]core.Content{
		core.NewTextContent(core.RoleSystem, "ignored here"),
		core.NewTextContent(core.RoleUser, "a"),
		core.NewTextContent(core.RoleUser, "b"),
		core.NewTextContent(core.RoleAssistant, "c"),
	})
	require.Len(t, msgs, 2)
	assert.Len(t, msgs[0].Content, 2)
	assert.Len(t, msgs[1].Content, 1)
}

func anthropicParams(prompt string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
}
