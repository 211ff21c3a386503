// Package mockhttp replaces the network round trip of an SDK client with
// hand-authored responses.
//
// A Transport is an http.RoundTripper that answers every request from a fixed
// or scripted list of responses and records what was sent. It is injected into
// the vendor SDKs through their HTTP client option:
//
//	tr := mockhttp.NewTransport(mockhttp.JSON(payload))
//	client := anthropic.NewClient(option.WithHTTPClient(tr.Client()))
//
// Code that cannot take an injected client can swap the transport of an
// existing *http.Client, or http.DefaultTransport, and restore it afterwards:
//
//	restore := mockhttp.InstallDefault(tr)
//	defer restore()
package mockhttp
