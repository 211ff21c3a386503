package model

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/sdkprobe/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input.
type Request struct {
	Instructions string           `json:"instructions,omitempty"` // System prompt
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	// Extra carries request fields the SDK does not declare. They are sent
	// verbatim at the top level of the request body.
	Extra map[string]any `json:"extra,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the final model answer for a Request.
type Response struct {
	ID           string       `json:"id"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // provider value, kept verbatim
	Usage        *TokenUsage  `json:"usage,omitempty"`
	// Raw is the unmodified response JSON as received from the provider.
	Raw string `json:"-"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "anthropic", "mistral", "mock"
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the tool runner to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrNoResponse is returned by Collect when the model closed its channels
// without emitting a response.
var ErrNoResponse = errors.New("model returned no response")

// Collect drains the channels returned by Generate and returns the last response.
func Collect(ctx context.Context, respCh <-chan Response, errCh <-chan error) (*Response, error) {
	var last *Response
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			last = &r
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return last, err
			}
		}
	}
	if last == nil {
		return nil, ErrNoResponse
	}
	return last, nil
}

// MockModel is a scripted in-memory Model useful for tests & examples.
// Responses are returned in order; every request is recorded.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	responses []Response
	requests  []Request
}

// NewMockModel constructs a MockModel returning responses in order.
func NewMockModel(name string, responses ...Response) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      "mock",
			SupportsTools: true,
		},
		responses: responses,
	}
}

// AddResponse appends a scripted response.
func (m *MockModel) AddResponse(r Response) {
	m.mu.Lock()
	m.responses = append(m.responses, r)
	m.mu.Unlock()
}

// Requests returns the requests seen so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	idx := len(m.requests) - 1
	var (
		resp Response
		ok   bool
	)
	if idx < len(m.responses) {
		resp, ok = m.responses[idx], true
	}
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if err := ctx.Err(); err != nil {
			errCh <- err
			return
		}
		if len(req.Contents) == 0 {
			errCh <- fmt.Errorf("no contents provided")
			return
		}
		if !ok {
			errCh <- fmt.Errorf("mock model: no scripted response for request %d", idx+1)
			return
		}
		respCh <- resp
	}()

	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
