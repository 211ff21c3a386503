package mockhttp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// ErrExhausted is returned when a scripted transport has no response left.
var ErrExhausted = errors.New("mockhttp: no scripted response left")

// Response is a canned HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// JSON builds a 200 application/json response. v may be raw JSON bytes,
// a json.RawMessage, a string holding JSON, or any value encodable by encoding/json.
func JSON(v any) Response {
	return Status(http.StatusOK, v)
}

// Status builds an application/json response with the given status code.
func Status(code int, v any) Response {
	var body []byte
	switch b := v.(type) {
	case []byte:
		body = b
	case json.RawMessage:
		body = b
	case string:
		body = []byte(b)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			panic(fmt.Sprintf("mockhttp: encode response body: %v", err))
		}
		body = encoded
	}

	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return Response{Status: code, Header: h, Body: body}
}

// RecordedRequest is a snapshot of a request seen by the transport.
type RecordedRequest struct {
	Method string
	URL    string
	Path   string
	Header http.Header
	Body   []byte
}

// Transport is an http.RoundTripper serving canned responses.
//
// With a single response every request receives it regardless of input. With
// several responses they are served in order and ErrExhausted is returned
// once the script ends, unless Repeat was called, in which case the last
// response is served from then on. Transport is safe for concurrent use.
type Transport struct {
	mu        sync.Mutex
	responses []Response
	next      int
	repeat    bool
	requests  []RecordedRequest
}

var _ http.RoundTripper = (*Transport)(nil)

// NewTransport creates a transport serving responses. A transport created
// with exactly one response repeats it forever.
func NewTransport(responses ...Response) *Transport {
	return &Transport{
		responses: responses,
		repeat:    len(responses) == 1,
	}
}

// Repeat makes the transport serve its last response once the script is exhausted.
func (t *Transport) Repeat() *Transport {
	t.mu.Lock()
	t.repeat = true
	t.mu.Unlock()
	return t
}

// Enqueue appends responses to the script.
func (t *Transport) Enqueue(responses ...Response) {
	t.mu.Lock()
	t.responses = append(t.responses, responses...)
	t.mu.Unlock()
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := RecordedRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Path:   req.URL.Path,
		Header: req.Header.Clone(),
	}
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("mockhttp: read request body: %w", err)
		}
		rec.Body = body
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	t.mu.Lock()
	t.requests = append(t.requests, rec)
	resp, ok := t.pick()
	t.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w (%s %s)", ErrExhausted, req.Method, req.URL)
	}

	return resp.toHTTP(req), nil
}

// pick returns the next response; callers hold t.mu.
func (t *Transport) pick() (Response, bool) {
	if len(t.responses) == 0 {
		return Response{}, false
	}
	if t.next < len(t.responses) {
		r := t.responses[t.next]
		t.next++
		return r, true
	}
	if t.repeat {
		return t.responses[len(t.responses)-1], true
	}
	return Response{}, false
}

func (r Response) toHTTP(req *http.Request) *http.Response {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}

	header := r.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "application/json")
	}
	if header.Get("Request-Id") == "" {
		header.Set("Request-Id", "req_"+uuid.NewString())
	}

	body := bytes.Clone(r.Body)
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// Requests returns a copy of the recorded requests in arrival order.
func (t *Transport) Requests() []RecordedRequest {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]RecordedRequest, len(t.requests))
	copy(out, t.requests)
	return out
}

// LastRequest returns the most recent request.
func (t *Transport) LastRequest() (RecordedRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.requests) == 0 {
		return RecordedRequest{}, false
	}
	return t.requests[len(t.requests)-1], true
}

// Remaining reports how many scripted responses have not been served yet.
func (t *Transport) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.responses) - t.next
}

// Client returns an *http.Client using the transport.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}
