package model

import (
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"github.com/tidwall/gjson"
)

// APIError is a provider error normalized across SDKs.
type APIError struct {
	Provider   string
	StatusCode int
	Type       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s api error (status %d, %s): %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// NormalizeError converts SDK API errors into *APIError. Other errors
// (network, context, decoding) are returned unchanged.
func NormalizeError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		// Anthropic error bodies: {"type":"error","error":{"type":"...","message":"..."}}
		raw := antErr.RawJSON()
		return &APIError{
			Provider:   provider,
			StatusCode: antErr.StatusCode,
			Type:       gjson.Get(raw, "error.type").String(),
			Message:    firstNonEmpty(gjson.Get(raw, "error.message").String(), antErr.Error()),
			Err:        err,
		}
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		// OpenAI-compatible bodies are either the error object itself or
		// wrapped in {"error": {...}}; Mistral also uses {"object":"error","message":...}.
		raw := oaiErr.RawJSON()
		return &APIError{
			Provider:   provider,
			StatusCode: oaiErr.StatusCode,
			Type:       firstNonEmpty(oaiErr.Type, gjson.Get(raw, "type").String(), gjson.Get(raw, "error.type").String()),
			Message:    firstNonEmpty(oaiErr.Message, gjson.Get(raw, "message").String(), gjson.Get(raw, "error.message").String(), oaiErr.Error()),
			Err:        err,
		}
	}

	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
