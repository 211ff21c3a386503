package compat

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/sdkprobe/check"
	"github.com/hupe1980/sdkprobe/fixture"
	"github.com/hupe1980/sdkprobe/logging"
	"github.com/hupe1980/sdkprobe/model/anthropic"
)

// AnthropicProbeModel is the model named in the probe request.
const AnthropicProbeModel anthropicsdk.Model = "claude-3-sonnet-20241022"

// AnthropicProbe checks that the Anthropic SDK sends unknown request
// parameters, surfaces unknown response fields and still decodes the
// documented ones.
func AnthropicProbe(ctx context.Context, opts ProbeOptions) (report *check.Report, err error) {
	logger := logging.OrNoOp(opts.Logger)
	report = check.NewReport("Anthropic Forward Compatibility Test", Activity)
	defer func() { logReport(logger, report) }()

	tr := defaultTransport(opts.Transport, fixture.AnthropicMessage())
	hc, restore := install(opts, tr)
	defer restore()

	client := anthropic.NewClient(func(o *anthropic.Options) {
		o.APIKey = fixture.PlaceholderAPIKey
		o.HTTPClient = hc
		o.MaxRetries = 0
	})

	// Test 1
	step := report.Step(StepUndocumentedParam)
	extras := fixture.AnthropicUndocumentedParams()
	msg, err := client.Create(ctx, anthropicsdk.MessageNewParams{
		Model:     AnthropicProbeModel,
		MaxTokens: 1024,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock("Hello!")),
		},
	}, extras)
	if err != nil {
		return report, report.Abort(err)
	}
	step.Pass("Request with undocumented parameter succeeded").
		Info("Response ID", msg.ID)
	expectParamsSent(step, tr, extras)

	// Test 2
	step = report.Step(StepUndocumentedProperty)
	var raw string
	if field, ok := msg.JSON.ExtraFields[fixture.UndocumentedProperty]; ok {
		raw = field.Raw()
	}
	reportUndocumented(step, raw)

	// Test 3
	step = report.Step(StepTypeSafety)
	contentType := ""
	if len(msg.Content) > 0 {
		contentType = msg.Content[0].Type
	}
	step.Info("Message type", string(msg.Type)).
		Info("Content type", contentType)
	step.Expect(msg.Type == "message" && contentType == "text",
		"Types work correctly for documented properties",
		fmt.Sprintf("Documented properties decoded unexpectedly (type=%q, content=%q)", msg.Type, contentType))

	// Test 4
	report.Step(StepFullResponse).
		Info("All response keys", topLevelKeys(msg.RawJSON()))

	return report, nil
}
