// Package config loads sdkprobe settings from built-in defaults, an optional
// TOML file and the environment, in that order of precedence (later wins).
//
// Environment mapping:
//
//	ANTHROPIC_API_KEY           -> anthropic.api_key
//	MISTRAL_API_KEY             -> mistral.api_key
//	SDKPROBE_<SECTION>_<KEY>    -> <section>.<key>  (e.g. SDKPROBE_MISTRAL_BASE_URL)
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks sdkprobe specific environment variables.
const EnvPrefix = "SDKPROBE_"

// Provider section names.
const (
	Anthropic = "anthropic"
	Mistral   = "mistral"
)

// ErrMissingAPIKey is returned by RequireAPIKey when no key is configured.
var ErrMissingAPIKey = errors.New("config: api key not set")

// Config is the complete sdkprobe configuration.
type Config struct {
	Anthropic ProviderConfig `koanf:"anthropic"`
	Mistral   ProviderConfig `koanf:"mistral"`
	Tools     ToolsConfig    `koanf:"tools"`
	Log       LogConfig      `koanf:"log"`
}

// ProviderConfig configures one provider client.
type ProviderConfig struct {
	APIKey     string        `koanf:"api_key"`
	BaseURL    string        `koanf:"base_url" validate:"required,url"`
	Model      string        `koanf:"model" validate:"required"`
	MaxTokens  int64         `koanf:"max_tokens" validate:"min=1"`
	MaxRetries int           `koanf:"max_retries" validate:"min=0"`
	Timeout    time.Duration `koanf:"timeout" validate:"min=0"`
}

// ToolsConfig configures the tool round.
type ToolsConfig struct {
	// Prompt is a text/template rendered with Location.
	Prompt        string `koanf:"prompt" validate:"required"`
	Location      string `koanf:"location"`
	MaxIterations int    `koanf:"max_iterations" validate:"min=1"`
	MaxParallel   int    `koanf:"max_parallel" validate:"min=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// Defaults returns the built-in settings as a flat koanf map.
func Defaults() map[string]any {
	return map[string]any{
		"anthropic.base_url":    "https://api.anthropic.com",
		"anthropic.model":       "claude-3-5-sonnet-latest",
		"anthropic.max_tokens":  1024,
		"anthropic.max_retries": 2,
		"anthropic.timeout":     "60s",

		"mistral.base_url":    "https://api.mistral.ai/v1",
		"mistral.model":       "mistral-small-latest",
		"mistral.max_tokens":  1024,
		"mistral.max_retries": 2,
		"mistral.timeout":     "60s",

		"tools.prompt":         "What is the weather in {{ .Location }}?",
		"tools.location":       "SF",
		"tools.max_iterations": 10,
		"tools.max_parallel":   0,

		"log.level":  "info",
		"log.format": "text",
	}
}

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// File is an optional TOML file. A missing file is an error.
	File string
	// Environ replaces os.Environ; tests use it to inject variables.
	Environ func() []string
	// Overrides are applied last, keyed by dotted path (e.g. "log.level").
	Overrides map[string]any
}

// Load assembles and validates the configuration.
func Load(optFns ...func(o *LoadOptions)) (*Config, error) {
	opts := LoadOptions{Environ: os.Environ}
	for _, fn := range optFns {
		fn(&opts)
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), toml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", opts.File, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: transformEnv,
		EnvironFunc:   opts.Environ,
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("config: load overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// transformEnv maps environment variables to koanf keys; unrelated
// variables are dropped by returning an empty key.
func transformEnv(key, value string) (string, any) {
	switch key {
	case "ANTHROPIC_API_KEY":
		return "anthropic.api_key", value
	case "MISTRAL_API_KEY":
		return "mistral.api_key", value
	}

	rest, ok := strings.CutPrefix(key, EnvPrefix)
	if !ok {
		return "", nil
	}
	section, name, ok := strings.Cut(strings.ToLower(rest), "_")
	if !ok || section == "" || name == "" {
		return "", nil
	}
	return section + "." + name, value
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}

// Provider returns the section for name.
func (c *Config) Provider(name string) (ProviderConfig, error) {
	switch name {
	case Anthropic:
		return c.Anthropic, nil
	case Mistral:
		return c.Mistral, nil
	default:
		return ProviderConfig{}, fmt.Errorf("config: unknown provider %q", name)
	}
}

// RequireAPIKey returns ErrMissingAPIKey when provider has no key.
func (c *Config) RequireAPIKey(provider string) error {
	p, err := c.Provider(provider)
	if err != nil {
		return err
	}
	if p.APIKey == "" {
		return fmt.Errorf("%w for %s (set %s_API_KEY)", ErrMissingAPIKey, provider, strings.ToUpper(provider))
	}
	return nil
}
