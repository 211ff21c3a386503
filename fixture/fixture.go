package fixture

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"
)

var (
	//go:embed payloads/anthropic_message.json
	anthropicMessage []byte

	//go:embed payloads/mistral_completion.json
	mistralCompletion []byte
)

// Undocumented names used throughout the probes.
const (
	UndocumentedProperty = "undocumented_property"
	UndocumentedParam    = "undocumented_param"
	UndocumentedValue    = "test_value"
	ExperimentalFeature  = "experimental_feature"
	ExperimentalFinish   = "new_experimental_finish"

	// PlaceholderAPIKey is the key handed to SDK clients that never reach the network.
	PlaceholderAPIKey = "test-key"
)

// AnthropicBase returns a copy of the documented Anthropic message payload.
func AnthropicBase() []byte { return bytes.Clone(anthropicMessage) }

// MistralBase returns a copy of the documented Mistral chat completion payload.
func MistralBase() []byte { return bytes.Clone(mistralCompletion) }

// Inject sets extras on a JSON document. Keys are sjson paths, so nested
// targets such as "choices.0.logprobs_v2" are allowed. Keys are applied in
// sorted order so results are deterministic.
func Inject(base []byte, extras map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(extras))
	for k := range extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := bytes.Clone(base)
	for _, k := range keys {
		var err error
		out, err = sjson.SetBytes(out, k, extras[k])
		if err != nil {
			return nil, fmt.Errorf("fixture: set %q: %w", k, err)
		}
	}
	return out, nil
}

// MustInject is Inject for static fixtures; it panics on error.
func MustInject(base []byte, extras map[string]any) []byte {
	out, err := Inject(base, extras)
	if err != nil {
		panic(err)
	}
	return out
}

// WithEnum replaces the string at path with value, typically an enum member
// the SDK does not know about.
func WithEnum(base []byte, path, value string) ([]byte, error) {
	out, err := sjson.SetBytes(base, path, value)
	if err != nil {
		return nil, fmt.Errorf("fixture: set enum %q: %w", path, err)
	}
	return out, nil
}

// AnthropicUndocumentedProperty is the unknown top-level object injected into
// the Anthropic message.
func AnthropicUndocumentedProperty() map[string]any {
	return map[string]any{
		"new_feature":       "This is a new feature from the API",
		"experimental_data": []int{1, 2, 3, 4, 5},
	}
}

// MistralUndocumentedProperty is the unknown top-level object injected into
// the Mistral completion.
func MistralUndocumentedProperty() map[string]any {
	return map[string]any{
		"new_feature": "This is a new feature from the Mistral API",
		"experimental_data": map[string]any{
			"confidence_score":   0.95,
			"processing_time_ms": 150,
		},
	}
}

// AnthropicMessage is the documented message plus undocumented_property.
func AnthropicMessage() []byte {
	return MustInject(AnthropicBase(), map[string]any{
		UndocumentedProperty: AnthropicUndocumentedProperty(),
	})
}

// MistralCompletion is the documented completion plus undocumented_property
// and a finish_reason outside the documented enum.
func MistralCompletion() []byte {
	body, err := WithEnum(MistralBase(), "choices.0.finish_reason", ExperimentalFinish)
	if err != nil {
		panic(err)
	}
	return MustInject(body, map[string]any{
		UndocumentedProperty: MistralUndocumentedProperty(),
	})
}

// AnthropicUndocumentedParams are the unknown request parameters sent with the
// Anthropic probe request.
func AnthropicUndocumentedParams() map[string]any {
	return map[string]any{UndocumentedParam: UndocumentedValue}
}

// MistralUndocumentedParams are the unknown request parameters sent with the
// Mistral probe request.
func MistralUndocumentedParams() map[string]any {
	return map[string]any{
		UndocumentedParam:   UndocumentedValue,
		ExperimentalFeature: true,
	}
}

// AnthropicToolUse is a message in which the model asks for a tool call.
func AnthropicToolUse(name string, input map[string]any) []byte {
	body := MustInject(AnthropicBase(), map[string]any{
		"id":          "msg_" + compactID(),
		"stop_reason": "tool_use",
		"content": []any{
			map[string]any{"type": "text", "text": "I'll look that up for you."},
			map[string]any{"type": "tool_use", "id": "toolu_" + compactID(), "name": name, "input": input},
		},
	})
	return body
}

// AnthropicText is a final assistant message holding text.
func AnthropicText(text string) []byte {
	return MustInject(AnthropicBase(), map[string]any{
		"id":          "msg_" + compactID(),
		"stop_reason": "end_turn",
		"content": []any{
			map[string]any{"type": "text", "text": text},
		},
	})
}

// MistralToolCall is a completion in which the model asks for a tool call.
// Arguments are encoded as a JSON string, as Mistral sends them.
func MistralToolCall(name string, args map[string]any) []byte {
	encoded, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	return MustInject(MistralBase(), map[string]any{
		"id":                      "cmpl-" + compactID(),
		"choices.0.finish_reason": "tool_calls",
		"choices.0.message": map[string]any{
			"role":    "assistant",
			"content": "",
			"tool_calls": []any{
				map[string]any{
					"id":   "call_" + compactID()[:24],
					"type": "function",
					"function": map[string]any{
						"name":      name,
						"arguments": string(encoded),
					},
				},
			},
		},
	})
}

// MistralText is a final completion holding text.
func MistralText(text string) []byte {
	return MustInject(MistralBase(), map[string]any{
		"id":                        "cmpl-" + compactID(),
		"choices.0.message.content": text,
	})
}

func compactID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}
