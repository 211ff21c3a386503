package sdkprobe

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/hupe1980/sdkprobe/check"
	"github.com/hupe1980/sdkprobe/compat"
	"github.com/hupe1980/sdkprobe/config"
	"github.com/hupe1980/sdkprobe/tool"
	"github.com/hupe1980/sdkprobe/toolrun"
)

func staticProbe(title string, err error) compat.Probe {
	return func(_ context.Context, _ compat.ProbeOptions) (*check.Report, error) {
		r := check.NewReport(title, "static")
		r.Step("only").Pass("ok")
		if err != nil {
			return r, r.Abort(err)
		}
		return r, nil
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(func(o *config.LoadOptions) {
		o.Environ = func() []string { return []string{"ANTHROPIC_API_KEY=test-key", "MISTRAL_API_KEY=test-key"} }
	})
	require.NoError(t, err)
	return cfg
}

// ----- Suite -----

func TestSuite_BuiltinNames(t *testing.T) {
	s := New()
	assert.Equal(t, []string{"anthropic", "mistral"}, s.Names())
}

func TestSuite_RunUnknown(t *testing.T) {
	_, err := New().Run(context.Background(), "cohere")
	assert.ErrorIs(t, err, ErrUnknownProbe)
}

func TestSuite_RunBuiltin(t *testing.T) {
	s := New()
	for _, name := range s.Names() {
		report, err := s.Run(context.Background(), name)
		require.NoError(t, err, name)
		assert.True(t, report.Passed(), "%s: %v", name, report.Failures())
	}
}

func TestSuite_RunAllKeepsOrder(t *testing.T) {
	s := New(func(o *Options) { o.MaxConcurrent = 2 })
	s.Register("static", staticProbe("Static", nil))

	reports, err := s.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, "Anthropic Forward Compatibility Test", reports[0].Title)
	assert.Equal(t, "Mistral Forward Compatibility Test", reports[1].Title)
	assert.Equal(t, "Static", reports[2].Title)
	assert.NoError(t, check.Err(reports...))
}

func TestSuite_RunAllJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int32

	s := New()
	s.Register("broken", staticProbe("Broken", boom))
	s.Register("counted", func(ctx context.Context, opts compat.ProbeOptions) (*check.Report, error) {
		calls.Add(1)
		return staticProbe("Counted", nil)(ctx, opts)
	})

	reports, err := s.RunAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), calls.Load(), "other probes still run")
	require.Len(t, reports, 4)
	assert.False(t, reports[2].Passed())
	assert.ErrorIs(t, check.Err(reports...), check.ErrFailed)
}

func TestSuite_RunAllReturnsErrorWithoutReport(t *testing.T) {
	dial := errors.New("dial tcp: refused")

	s := New(func(o *Options) { o.MaxConcurrent = 1 })
	s.Register("unreachable", func(context.Context, compat.ProbeOptions) (*check.Report, error) {
		return nil, dial
	})

	reports, err := s.RunAll(context.Background())
	require.ErrorIs(t, err, dial)
	require.Len(t, reports, 3)
	assert.Nil(t, reports[2])
	assert.True(t, reports[0].Passed())
	assert.True(t, reports[1].Passed())
}

func TestSuite_RunAllPassesCallerContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "caller")

	var seen atomic.Value
	s := New()
	s.Register("ctx", func(ctx context.Context, opts compat.ProbeOptions) (*check.Report, error) {
		seen.Store(ctx.Value(key{}))
		return staticProbe("Ctx", nil)(ctx, opts)
	})

	_, err := s.RunAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "caller", seen.Load())
}

func TestSuite_RegisterReplaces(t *testing.T) {
	s := New()
	s.Register(compat.NameMistral, staticProbe("Replaced", nil))

	assert.Equal(t, []string{"anthropic", "mistral"}, s.Names())
	report, err := s.Run(context.Background(), compat.NameMistral)
	require.NoError(t, err)
	assert.Equal(t, "Replaced", report.Title)
}

// ----- NewModel / MockToolTransport -----

func TestNewModel(t *testing.T) {
	cfg := testConfig(t)

	m, err := NewModel(config.Anthropic, cfg.Anthropic, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", m.Info().Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", m.Info().Name)

	m, err = NewModel(config.Mistral, cfg.Mistral, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "mistral", m.Info().Provider)
	assert.Equal(t, "mistral-small-latest", m.Info().Name)

	_, err = NewModel("cohere", cfg.Mistral, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestMockToolTransport_RoundTrip(t *testing.T) {
	cfg := testConfig(t)

	for _, provider := range []string{config.Anthropic, config.Mistral} {
		t.Run(provider, func(t *testing.T) {
			tr, err := MockToolTransport(provider, "SF")
			require.NoError(t, err)

			pc, err := cfg.Provider(provider)
			require.NoError(t, err)
			m, err := NewModel(provider, pc, tr.Client(), nil)
			require.NoError(t, err)

			res, err := toolrun.New(m, tool.NewRegistry(tool.NewWeatherTool())).
				Run(context.Background(), "What is the weather in SF?")
			require.NoError(t, err)

			assert.False(t, res.Direct)
			assert.Equal(t, 1, res.Rounds)
			assert.Contains(t, res.Text(), tool.WeatherReport("SF"))
			assert.Zero(t, tr.Remaining())

			reqs := tr.Requests()
			require.Len(t, reqs, 2)
			assert.Contains(t, gjson.GetBytes(reqs[1].Body, "messages").Raw, "foggy")
		})
	}

	_, err := MockToolTransport("cohere", "SF")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
