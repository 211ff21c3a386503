package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weatherArgs struct {
	Location string `json:"location" description:"The city and state, e.g. San Francisco, CA"`
	Unit     string `json:"unit,omitempty" enum:"celsius,fahrenheit"`
	Days     *int   `json:"days"`
	internal string //nolint:unused
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(weatherArgs{})

	props := Properties(schema)
	require.NotNil(t, props)
	assert.Contains(t, props, "location")
	assert.Contains(t, props, "unit")
	assert.Contains(t, props, "days")
	assert.NotContains(t, props, "internal")

	loc := props["location"].(map[string]any)
	assert.Equal(t, "string", loc["type"])
	assert.Equal(t, "The city and state, e.g. San Francisco, CA", loc["description"])

	unit := props["unit"].(map[string]any)
	assert.Equal(t, []string{"celsius", "fahrenheit"}, unit["enum"])

	days := props["days"].(map[string]any)
	assert.Equal(t, "integer", days["type"])

	assert.ElementsMatch(t, []string{"location"}, RequiredFields(schema))
}

func TestCreateSchema_NonStruct(t *testing.T) {
	schema := CreateSchema(42)
	assert.Equal(t, "object", schema["type"])
	assert.Empty(t, Properties(schema))
	assert.Nil(t, RequiredFields(schema))
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x":    map[string]any{"type": "integer"},
			"mode": map[string]any{"type": "string", "enum": []any{"fast", "slow"}},
		},
		"required": []any{"x"},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"x": 5.0, "extra": true}, schema))

	err := ValidateParameters(map[string]any{}, schema)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "x", vErr.Field)

	err = ValidateParameters(map[string]any{"x": "not-int"}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "expected type integer")

	err = ValidateParameters(map[string]any{"x": 1.5}, schema)
	require.ErrorAs(t, err, &vErr)

	err = ValidateParameters(map[string]any{"x": 1, "mode": "medium"}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "mode", vErr.Field)
}

func TestValidateParameters_StringRequired(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"location": map[string]any{"type": "string"}},
		"required":   []string{"location"},
	}

	assert.Error(t, ValidateParameters(map[string]any{}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"location": "SF"}, schema))
}

func TestDecodeArguments(t *testing.T) {
	args, err := DecodeArguments(`{"location":"San Francisco, CA","days":3}`)
	require.NoError(t, err)
	assert.Equal(t, "San Francisco, CA", args["location"])
	assert.Equal(t, 3.0, args["days"])

	args, err = DecodeArguments("  ")
	require.NoError(t, err)
	assert.Empty(t, args)

	args, err = DecodeArguments("null")
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = DecodeArguments(`{"location":`)
	assert.Error(t, err)

	_, err = DecodeArguments(`["not","an","object"]`)
	assert.Error(t, err)
}

func TestRenderPrompt(t *testing.T) {
	out, err := RenderPrompt("What is the weather in SF?", nil)
	require.NoError(t, err)
	assert.Equal(t, "What is the weather in SF?", out)

	out, err = RenderPrompt("What is the weather in {{ .location }}?", map[string]any{"location": "Berlin"})
	require.NoError(t, err)
	assert.Equal(t, "What is the weather in Berlin?", out)

	out, err = RenderPrompt(`{{ default "SF" .location | upper }}`, map[string]any{"location": ""})
	require.NoError(t, err)
	assert.Equal(t, "SF", out)

	_, err = RenderPrompt("{{ .missing }}", map[string]any{})
	assert.Error(t, err)

	_, err = RenderPrompt("{{ .broken ", nil)
	assert.Error(t, err)
}
