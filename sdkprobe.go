// Package sdkprobe runs forward-compatibility probes against LLM provider
// SDKs and drives tool calling round trips through them.
//
// Most callers interact with this package by:
//  1. Creating a Suite via New() (the built-in anthropic and mistral probes
//     are registered already)
//  2. Running one probe (Run) or all of them concurrently (RunAll)
//  3. Printing the reports with check.Printer
//
// NewModel builds a provider adapter from a config.ProviderConfig for the
// tool runner.
package sdkprobe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/sdkprobe/check"
	"github.com/hupe1980/sdkprobe/compat"
	"github.com/hupe1980/sdkprobe/config"
	"github.com/hupe1980/sdkprobe/fixture"
	"github.com/hupe1980/sdkprobe/logging"
	"github.com/hupe1980/sdkprobe/mockhttp"
	"github.com/hupe1980/sdkprobe/model"
	"github.com/hupe1980/sdkprobe/model/anthropic"
	"github.com/hupe1980/sdkprobe/model/mistral"
	"github.com/hupe1980/sdkprobe/tool"
)

// ErrUnknownProbe is returned by Run for names that were never registered.
var ErrUnknownProbe = errors.New("sdkprobe: unknown probe")

// ErrUnknownProvider is returned by NewModel and MockToolTransport.
var ErrUnknownProvider = errors.New("sdkprobe: unknown provider")

// Options configures a Suite.
type Options struct {
	// MaxConcurrent limits probes running at once in RunAll; 0 means no limit.
	MaxConcurrent int
	Logger        logging.Logger
}

// Suite is an ordered set of named probes.
type Suite struct {
	opts   Options
	mu     sync.RWMutex
	names  []string
	probes map[string]compat.Probe
}

// New creates a Suite with the built-in probes registered in the order
// anthropic, mistral.
func New(optFns ...func(o *Options)) *Suite {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	s := &Suite{opts: opts, probes: make(map[string]compat.Probe)}
	builtin := compat.Probes()
	for _, name := range []string{compat.NameAnthropic, compat.NameMistral} {
		s.probes[name] = builtin[name]
		s.names = append(s.names, name)
	}
	return s
}

// Register adds or replaces a probe. New names are appended to the run order.
func (s *Suite) Register(name string, p compat.Probe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.probes[name]; !ok {
		s.names = append(s.names, name)
	}
	s.probes[name] = p
}

// Names returns the probe names in run order.
func (s *Suite) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.names...)
}

// Run executes a single probe.
func (s *Suite) Run(ctx context.Context, name string) (*check.Report, error) {
	s.mu.RLock()
	p, ok := s.probes[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProbe, name)
	}

	s.opts.Logger.Debug("sdkprobe.probe.start", "probe", name)
	report, err := p(ctx, compat.ProbeOptions{Logger: s.opts.Logger})
	s.opts.Logger.Debug("sdkprobe.probe.done", "probe", name, "passed", err == nil && report != nil && report.Passed())
	return report, err
}

// RunAll executes every probe concurrently. Reports come back in run order;
// a probe that errors does not stop the others and the errors are joined.
func (s *Suite) RunAll(ctx context.Context) ([]*check.Report, error) {
	names := s.Names()
	reports := make([]*check.Report, len(names))
	errs := make([]error, len(names))

	var g errgroup.Group
	if s.opts.MaxConcurrent > 0 {
		g.SetLimit(s.opts.MaxConcurrent)
	}
	for i, name := range names {
		g.Go(func() error {
			reports[i], errs[i] = s.Run(ctx, name)
			return nil
		})
	}
	_ = g.Wait()

	return reports, errors.Join(errs...)
}

// NewModel builds the adapter for provider ("anthropic" or "mistral").
// hc may be nil to use the SDK's default HTTP client.
func NewModel(provider string, cfg config.ProviderConfig, hc *http.Client, logger logging.Logger) (model.Model, error) {
	if hc == nil && cfg.Timeout > 0 {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	switch provider {
	case config.Anthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.Model = anthropicsdk.Model(cfg.Model)
			o.MaxTokens = cfg.MaxTokens
			o.MaxRetries = cfg.MaxRetries
			o.HTTPClient = hc
		}).WithLogger(logger), nil
	case config.Mistral:
		return mistral.NewModel(func(o *mistral.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.Model = cfg.Model
			o.MaxTokens = cfg.MaxTokens
			o.MaxRetries = cfg.MaxRetries
			o.HTTPClient = hc
		}).WithLogger(logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

// MockToolTransport scripts an offline weather round for provider: the
// first response asks for the weather tool at location, the second answers
// with the tool's report.
func MockToolTransport(provider, location string) (*mockhttp.Transport, error) {
	args := map[string]any{"location": location}
	final := "Right now in " + location + ": " + tool.WeatherReport(location)

	switch provider {
	case config.Anthropic:
		return mockhttp.NewTransport(
			mockhttp.JSON(fixture.AnthropicToolUse(tool.WeatherToolName, args)),
			mockhttp.JSON(fixture.AnthropicText(final)),
		), nil
	case config.Mistral:
		return mockhttp.NewTransport(
			mockhttp.JSON(fixture.MistralToolCall(tool.WeatherToolName, args)),
			mockhttp.JSON(fixture.MistralText(final)),
		), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}
