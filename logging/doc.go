// Package logging provides a minimal logging interface and adapters for sdkprobe.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the probes, model adapters and the tool runner use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ProbeLogger with component / provider context and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "text", false)
//	runner := toolrun.New(model, registry, func(o *toolrun.Options) { o.Logger = logger })
//
// Probe reports are written to stdout by the check package; log records go to
// stderr so the two streams never interleave.
package logging
