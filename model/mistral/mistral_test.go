package mistral

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/openai/openai-go"
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

func weatherDefinition() model.ToolDefinition {
	return model.ToolDefinition{
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
	}
}

func TestModel_GenerateText(t *testing.T) {
	tr := mockhttp.NewTransport(mockhttp.JSON(fixture.MistralText("Foggy, 20°C.")))
	m := newTestModel(tr)

	resp, err := generate(t, m, model.Request{
		Instructions: "Be brief.",
		Contents:     []core.Content{core.NewTextContent(core.RoleUser, "What's the weather in Paris?")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Foggy, 20°C.", resp.Content.Text())
	assert.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 35, resp.Usage.TotalTokens)

	req, ok := tr.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "https://api.mistral.ai/v1/chat/completions", req.URL)
	assert.Equal(t, "Bearer "+fixture.PlaceholderAPIKey, req.Header.Get("Authorization"))

	body := gjson.ParseBytes(req.Body)
	assert.Equal(t, DefaultModel, body.Get("model").String())
	assert.Equal(t, int64(1024), body.Get("max_tokens").Int())
	assert.Equal(t, "system", body.Get("messages.0.role").String())
	assert.Equal(t, "Be brief.", body.Get("messages.0.content").String())
	assert.Equal(t, "user", body.Get("messages.1.role").String())
	assert.False(t, body.Get("tools").Exists())
	assert.False(t, body.Get("tool_choice").Exists())
}

func TestModel_GenerateToolCall(t *testing.T) {
	tr := mockhttp.NewTransport(mockhttp.JSON(fixture.MistralToolCall("getWeather", map[string]any{"location": "Paris"})))
	m := newTestModel(tr)

	resp, err := generate(t, m, model.Request{
		Contents: []core.Content{core.NewTextContent(core.RoleUser, "What's the weather in Paris?")},
		Tools:    []model.ToolDefinition{weatherDefinition()},
	})
	require.NoError(t, err)

	assert.Equal(t, "tool_calls", resp.FinishReason)
	calls := resp.Content.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "getWeather", calls[0].Name)
	assert.JSONEq(t, `{"location":"Paris"}`, calls[0].Arguments)

	req, _ := tr.LastRequest()
	body := gjson.ParseBytes(req.Body)
	assert.Equal(t, "auto", body.Get("tool_choice").String())
	assert.Equal(t, "function", body.Get("tools.0.type").String())
	assert.Equal(t, "getWeather", body.Get("tools.0.function.name").String())
	assert.Equal(t, "Get the weather at a specific location", body.Get("tools.0.function.description").String())
	assert.Equal(t, "location", body.Get("tools.0.function.parameters.required.0").String())
}

func TestModel_ToolMessagesCarryName(t *testing.T) {
	tr := mockhttp.NewTransport(mockhttp.JSON(fixture.MistralText("done")))
	m := newTestModel(tr)

	contents := []core.Content{
		core.NewTextContent(core.RoleUser, "What's the weather in Paris?"),
		{Role: core.RoleAssistant, Parts: []core.Part{
			core.TextPart{Text: "Let me check."},
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "call_1", Name: "getWeather", Arguments: `{"location":"Paris"}`}},
		}},
		{Role: core.RoleTool, Parts: []core.Part{
			core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "call_1", Name: "getWeather", Response: "foggy"}},
		}},
	}

	_, err := generate(t, m, model.Request{Contents: contents, Tools: []model.ToolDefinition{weatherDefinition()}})
	require.NoError(t, err)

	req, _ := tr.LastRequest()
	msgs := gjson.GetBytes(req.Body, "messages")
	require.Equal(t, int64(3), msgs.Get("#").Int())

	assert.Equal(t, "assistant", msgs.Get("1.role").String())
	assert.Equal(t, "Let me check.", msgs.Get("1.content").String())
	assert.Equal(t, "call_1", msgs.Get("1.tool_calls.0.id").String())
	assert.Equal(t, "function", msgs.Get("1.tool_calls.0.type").String())
	assert.Equal(t, `{"location":"Paris"}`, msgs.Get("1.tool_calls.0.function.arguments").String())

	assert.Equal(t, "tool", msgs.Get("2.role").String())
	assert.Equal(t, "call_1", msgs.Get("2.tool_call_id").String())
	assert.Equal(t, "getWeather", msgs.Get("2.name").String())
	assert.Equal(t, "foggy", msgs.Get("2.content").String())
}

func TestModel_FollowUpRequestShape(t *testing.T) {
	tr := mockhttp.NewTransport(mockhttp.JSON(fixture.MistralText("done")))
	m := newTestModel(tr)

	contents := []core.Content{
		core.NewTextContent(core.RoleUser, "What is the weather in SF?"),
		{Role: core.RoleAssistant, Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "call_1", Name: "getWeather", Arguments: `{"location":"SF"}`}},
		}},
		{Role: core.RoleTool, Parts: []core.Part{
			core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "call_1", Name: "getWeather", Response: "foggy"}},
		}},
	}

	_, err := generate(t, m, model.Request{Contents: contents, Tools: []model.ToolDefinition{weatherDefinition()}})
	require.NoError(t, err)

	req, _ := tr.LastRequest()
	body := gjson.ParseBytes(req.Body)
	assert.False(t, body.Get("tool_choice").Exists())
	assert.Equal(t, "getWeather", body.Get("tools.0.function.name").String())

	content := body.Get("messages.1.content")
	require.True(t, content.Exists(), "assistant content is sent even when empty")
	assert.Equal(t, gjson.String, content.Type)
	assert.Equal(t, "", content.String())
	assert.Equal(t, "call_1", body.Get("messages.1.tool_calls.0.id").String())
}

func TestModel_UnknownFinishReasonIsKept(t *testing.T) {
	m := newTestModel(mockhttp.NewTransport(mockhttp.JSON(fixture.MistralCompletion())))

	resp, err := generate(t, m, model.Request{
		Contents: []core.Content{core.NewTextContent(core.RoleUser, "hi")},
		Extra:    fixture.MistralUndocumentedParams(),
	})
	require.NoError(t, err)
	assert.Equal(t, fixture.ExperimentalFinish, resp.FinishReason)
	assert.True(t, gjson.Get(resp.Raw, fixture.UndocumentedProperty).Exists())
}

func TestModel_NoChoices(t *testing.T) {
	body := fixture.MustInject(fixture.MistralBase(), map[string]any{"choices": []any{}})
	m := newTestModel(mockhttp.NewTransport(mockhttp.JSON(body)))

	_, err := generate(t, m, model.Request{Contents: []core.Content{core.NewTextContent(core.RoleUser, "hi")}})
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestModel_APIError(t *testing.T) {
	tr := mockhttp.NewTransport(mockhttp.Status(http.StatusUnauthorized,
		`{"error":{"message":"Unauthorized","type":"unauthorized","param":null,"code":null}}`))
	m := newTestModel(tr)

	_, err := generate(t, m, model.Request{Contents: []core.Content{core.NewTextContent(core.RoleUser, "hi")}})
	require.Error(t, err)

	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, ProviderName, apiErr.Provider)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "unauthorized", apiErr.Type)
	assert.Equal(t, "Unauthorized", apiErr.Message)
}

func TestClient_CompleteSendsExtras(t *testing.T) {
	tr := mockhttp.NewTransport(mockhttp.JSON(fixture.MistralCompletion()))
	c := NewClient(func(o *Options) {
		o.APIKey = fixture.PlaceholderAPIKey
		o.HTTPClient = tr.Client()
	})

	resp, err := c.Complete(context.Background(), openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage("Tell me a fact")},
	}, fixture.MistralUndocumentedParams())
	require.NoError(t, err)
	assert.Equal(t, "cmpl-abc123", resp.ID)

	_, ok := resp.JSON.ExtraFields[fixture.UndocumentedProperty]
	assert.True(t, ok)

	req, _ := tr.LastRequest()
	body := gjson.ParseBytes(req.Body)
	assert.Equal(t, fixture.UndocumentedValue, body.Get(fixture.UndocumentedParam).String())
	assert.True(t, body.Get(fixture.ExperimentalFeature).Bool())
}

func TestNewClient_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv(APIKeyEnv, "env-key")
	c := NewClient()
	assert.Equal(t, "env-key", c.Options().APIKey)
	assert.Equal(t, DefaultBaseURL, c.Options().BaseURL)
}

func TestModel_Info(t *testing.T) {
	info := NewModel(func(o *Options) { o.Model = "mistral-large-latest" }).Info()
	assert.Equal(t, "mistral-large-latest", info.Name)
	assert.Equal(t, ProviderName, info.Provider)
}
