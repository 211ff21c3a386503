// Package util holds internal helpers shared by the tool subsystem and the CLI:
// JSON schema derivation and validation for tool parameters, argument decoding
// and prompt templating.
package util
