package mockhttp

import (
	"net/http"
	"sync"
)

var defaultMu sync.Mutex

// Install swaps the transport of c for rt and returns a function restoring
// the original. Restore is idempotent.
func Install(c *http.Client, rt http.RoundTripper) (restore func()) {
	original := c.Transport
	c.Transport = rt

	var once sync.Once
	return func() {
		once.Do(func() { c.Transport = original })
	}
}

// InstallDefault swaps http.DefaultTransport for rt. SDK clients constructed
// without an explicit HTTP client fall back to http.DefaultClient, whose nil
// transport resolves to http.DefaultTransport, so they observe rt until the
// returned restore function runs. Only one caller may hold the default
// transport at a time; concurrent callers block until it is restored.
func InstallDefault(rt http.RoundTripper) (restore func()) {
	defaultMu.Lock()
	original := http.DefaultTransport
	http.DefaultTransport = rt

	var once sync.Once
	return func() {
		once.Do(func() {
			http.DefaultTransport = original
			defaultMu.Unlock()
		})
	}
}
