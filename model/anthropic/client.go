// Package anthropic adapts the official Anthropic Go SDK to model.Model and
// exposes a thin client for sending requests that carry fields the SDK does
// not declare.
package anthropic

import (
	"context"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/sdkprobe/model"
)

const (
	// ProviderName identifies this adapter in logs and errors.
	ProviderName = "anthropic"

	// DefaultModel is the model requested unless Options.Model overrides it.
	DefaultModel anthropic.Model = "claude-3-5-sonnet-latest"
)

// Options configures the Anthropic client and model adapter.
type Options struct {
	APIKey  string
	BaseURL string
	Model   anthropic.Model
	// MaxTokens is required by the Messages API.
	MaxTokens int64
	// HTTPClient replaces the SDK's default client; tests inject a
	// mockhttp transport through it.
	HTTPClient *http.Client
	// MaxRetries overrides the SDK retry count when >= 0.
	MaxRetries int
}

func defaultOptions() Options {
	return Options{
		Model:      DefaultModel,
		MaxTokens:  1024,
		MaxRetries: -1,
	}
}

// Client wraps an anthropic.Client.
type Client struct {
	sdk  anthropic.Client
	opts Options
}

// NewClient builds an SDK client from options. Unset fields fall back to the
// SDK defaults, which read ANTHROPIC_API_KEY and ANTHROPIC_BASE_URL.
func NewClient(optFns ...func(o *Options)) *Client {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.MaxRetries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(opts.MaxRetries))
	}

	return &Client{sdk: anthropic.NewClient(reqOpts...), opts: opts}
}

// Options returns the options the client was built with.
func (c *Client) Options() Options { return c.opts }

// Create sends a Messages API request. extras are merged into the top level
// of the request body; they may name fields the SDK does not know about.
func (c *Client) Create(ctx context.Context, params anthropic.MessageNewParams, extras map[string]any) (*anthropic.Message, error) {
	if params.Model == "" {
		params.Model = c.opts.Model
	}
	if params.MaxTokens == 0 {
		params.MaxTokens = c.opts.MaxTokens
	}
	if len(extras) > 0 {
		params.SetExtraFields(extras)
	}

	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return nil, model.NormalizeError(ProviderName, err)
	}
	return msg, nil
}
