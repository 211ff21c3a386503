// Package mistral adapts Mistral's OpenAI-compatible chat completions
// endpoint to model.Model. Requests go through the official openai-go SDK
// with the base URL pointed at Mistral.
package mistral

import (
	"context"
	"net/http"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/sdkprobe/model"
)

const (
	// ProviderName identifies this adapter in logs and errors.
	ProviderName = "mistral"

	// DefaultBaseURL is Mistral's OpenAI-compatible API root.
	DefaultBaseURL = "https://api.mistral.ai/v1"

	// DefaultModel is the model requested unless Options.Model overrides it.
	DefaultModel = "mistral-small-latest"

	// APIKeyEnv is read when Options.APIKey is empty.
	APIKeyEnv = "MISTRAL_API_KEY"
)

// Options configures the Mistral client and model adapter.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int64
	HTTPClient *http.Client
	// MaxRetries overrides the SDK retry count when >= 0.
	MaxRetries int
}

func defaultOptions() Options {
	return Options{
		BaseURL:    DefaultBaseURL,
		Model:      DefaultModel,
		MaxTokens:  1024,
		MaxRetries: -1,
	}
}

// Client wraps an openai.Client configured for Mistral.
type Client struct {
	sdk  openai.Client
	opts Options
}

// NewClient builds an SDK client for Mistral.
func NewClient(optFns ...func(o *Options)) *Client {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.APIKey == "" {
		opts.APIKey = os.Getenv(APIKeyEnv)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}

	reqOpts := []option.RequestOption{
		option.WithBaseURL(opts.BaseURL),
	}
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	if opts.MaxRetries >= 0 {
		reqOpts = append(reqOpts, option.WithMaxRetries(opts.MaxRetries))
	}

	return &Client{sdk: openai.NewClient(reqOpts...), opts: opts}
}

// Options returns the options the client was built with.
func (c *Client) Options() Options { return c.opts }

// Complete sends a chat completion request. extras are merged into the top
// level of the request body; they may name fields the SDK does not know about.
func (c *Client) Complete(ctx context.Context, params openai.ChatCompletionNewParams, extras map[string]any) (*openai.ChatCompletion, error) {
	if params.Model == "" {
		params.Model = c.opts.Model
	}
	if !params.MaxTokens.Valid() && c.opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(c.opts.MaxTokens)
	}
	if len(extras) > 0 {
		params.SetExtraFields(extras)
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, model.NormalizeError(ProviderName, err)
	}
	return resp, nil
}
