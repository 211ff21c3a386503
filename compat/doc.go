// Package compat holds the forward-compatibility probes. Each probe swaps the
// HTTP transport of a freshly built SDK client for a mock serving a
// hand-authored payload, sends a request carrying parameters the SDK does not
// declare and checks that undocumented response fields and enum values come
// back unchanged. Results are recorded on a check.Report.
package compat
