package compat

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/sdkprobe/check"
	"github.com/hupe1980/sdkprobe/fixture"
	"github.com/hupe1980/sdkprobe/logging"
	"github.com/hupe1980/sdkprobe/model/mistral"
)

// MistralProbe checks that the Mistral client sends unknown request
// parameters, surfaces unknown response fields and passes an unknown
// finish_reason through unchanged.
func MistralProbe(ctx context.Context, opts ProbeOptions) (report *check.Report, err error) {
	logger := logging.OrNoOp(opts.Logger)
	report = check.NewReport("Mistral Forward Compatibility Test", Activity)
	defer func() { logReport(logger, report) }()

	tr := defaultTransport(opts.Transport, fixture.MistralCompletion())
	hc, restore := install(opts, tr)
	defer restore()

	client := mistral.NewClient(func(o *mistral.Options) {
		o.APIKey = fixture.PlaceholderAPIKey
		o.HTTPClient = hc
		o.MaxRetries = 0
	})

	// Test 1
	step := report.Step(StepUndocumentedParam)
	extras := fixture.MistralUndocumentedParams()
	resp, err := client.Complete(ctx, openai.ChatCompletionNewParams{
		Model:     mistral.DefaultModel,
		MaxTokens: openai.Int(1024),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("Hello!"),
		},
	}, extras)
	if err != nil {
		return report, report.Abort(err)
	}
	step.Pass("Request with undocumented parameter succeeded").
		Info("Response ID", resp.ID)
	expectParamsSent(step, tr, extras)

	// Test 2
	step = report.Step(StepUndocumentedProperty)
	var raw string
	if field, ok := resp.JSON.ExtraFields[fixture.UndocumentedProperty]; ok {
		raw = field.Raw()
	}
	reportUndocumented(step, raw)

	// Test 3
	step = report.Step(StepEnumValues)
	if len(resp.Choices) == 0 {
		return report, report.Abort(mistral.ErrNoChoices)
	}
	finish := resp.Choices[0].FinishReason
	step.Info("Finish reason", finish).
		Info("Finish reason type", fmt.Sprintf("%T", finish))
	if !step.Expect(finish == fixture.ExperimentalFinish,
		"SDK accepts new enum values without breaking",
		"SDK may have transformed or rejected the new enum value") {
		step.Detail("Actual value received", finish)
	}

	return report, nil
}
