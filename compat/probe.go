package compat

import (
	"context"
	"net/http"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/sdkprobe/check"
	"github.com/hupe1980/sdkprobe/logging"
	"github.com/hupe1980/sdkprobe/mockhttp"
)

// Activity names what a probe does in error lines.
const Activity = "forward compatibility test"

// Probe names.
const (
	NameAnthropic = "anthropic"
	NameMistral   = "mistral"
)

// Step titles shared by the probes.
const (
	StepUndocumentedParam    = "Passing undocumented parameter to request..."
	StepUndocumentedProperty = "Accessing undocumented property from response..."
	StepTypeSafety           = "Checking type safety..."
	StepFullResponse         = "Inspecting full response object..."
	StepEnumValues           = "Testing new enum values..."
)

// ProbeOptions configures a probe run.
type ProbeOptions struct {
	// Transport serves the provider responses. When nil the probe's
	// documented fixture is served for every request.
	Transport *mockhttp.Transport
	// HTTPClient receives Transport for the duration of the probe and gets
	// its original transport back on return. A fresh client is used when nil.
	HTTPClient *http.Client
	// Global swaps http.DefaultTransport instead (mockhttp.InstallDefault)
	// and leaves the SDK clients on their default HTTP client. Global probes
	// run one at a time.
	Global bool
	Logger logging.Logger
}

// Probe runs one forward-compatibility check suite. The report is returned
// even when err is non-nil.
type Probe func(ctx context.Context, opts ProbeOptions) (*check.Report, error)

// Probes returns the built-in probes by name.
func Probes() map[string]Probe {
	return map[string]Probe{
		NameAnthropic: AnthropicProbe,
		NameMistral:   MistralProbe,
	}
}

// install routes the probe's traffic through tr. It returns the client to
// hand to the SDK (nil in global mode) and the restore func, which callers
// defer so it runs on every return path.
func install(opts ProbeOptions, tr *mockhttp.Transport) (*http.Client, func()) {
	if opts.Global {
		return nil, mockhttp.InstallDefault(tr)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return hc, mockhttp.Install(hc, tr)
}

// expectParamsSent checks that every extra made it into the captured request body.
func expectParamsSent(step *check.Step, tr *mockhttp.Transport, extras map[string]any) {
	req, ok := tr.LastRequest()
	if !ok {
		step.Fail("No request was captured")
		return
	}

	keys := make([]string, 0, len(extras))
	for k := range extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		step.Expect(gjson.GetBytes(req.Body, k).Exists(),
			"Request body carried "+k,
			"Request body is missing "+k)
	}
}

// reportUndocumented records the undocumented_property object. raw is the
// property's JSON or "" when the SDK did not surface it.
func reportUndocumented(step *check.Step, raw string) {
	if raw == "" {
		step.Fail("Undocumented property not found in response")
		return
	}

	prop := gjson.Parse(raw)
	step.Pass("Undocumented property found in response:").
		Detail("new_feature", prop.Get("new_feature").String()).
		Detail("experimental_data", rawValue(prop.Get("experimental_data")))
}

// topLevelKeys returns the object keys of raw in document order.
func topLevelKeys(raw string) []string {
	var keys []string
	gjson.Parse(raw).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

func rawValue(r gjson.Result) any {
	if !r.Exists() {
		return nil
	}
	if r.Type == gjson.String {
		return r.String()
	}
	return rawJSON(r.Raw)
}

type rawJSON string

func (r rawJSON) String() string { return string(r) }

type checkLogger interface {
	LogCheck(step, check string, passed bool)
}

func logReport(l logging.Logger, r *check.Report) {
	cl, ok := l.(checkLogger)
	for _, s := range r.Steps {
		for _, line := range s.Lines {
			if line.Kind == check.KindInfo {
				continue
			}
			if ok {
				cl.LogCheck(s.Title, line.Label, line.Kind == check.KindPass)
				continue
			}
			l.Debug("compat.check", "step", s.Title, "check", line.Label, "passed", line.Kind == check.KindPass)
		}
	}
	if r.Err != nil {
		l.Error("compat.probe.failed", "probe", r.Title, "error", r.Err.Error())
	}
}

func defaultTransport(tr *mockhttp.Transport, body []byte) *mockhttp.Transport {
	if tr != nil {
		return tr
	}
	return mockhttp.NewTransport(mockhttp.JSON(body))
}
