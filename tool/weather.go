package tool

import (
	"fmt"

	"github.com/hupe1980/sdkprobe/core"
)

// WeatherToolName is the function name declared to the providers.
const WeatherToolName = "getWeather"

// WeatherArgs is the argument shape of the weather tool.
type WeatherArgs struct {
	Location string `json:"location" description:"The city and state, e.g. San Francisco, CA"`
}

// NewWeatherTool returns the local weather stub used by the tool round demos.
// It never touches the network and always reports fog at 20°C.
func NewWeatherTool() *FunctionTool {
	return NewFunctionToolFromStruct(
		WeatherToolName,
		"Get the weather at a specific location",
		WeatherArgs{},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			location, _ := args["location"].(string)
			if location == "" {
				return nil, NewToolError(WeatherToolName, "location must not be empty", CodeValidation)
			}
			tc.LogDebug("weather.lookup", "location", location)
			return WeatherReport(location), nil
		},
	)
}

// WeatherReport is the stub's answer for location.
func WeatherReport(location string) string {
	return fmt.Sprintf("The weather is foggy with a temperature of 20°C in %s.", location)
}
