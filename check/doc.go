// Package check records the outcome of a probe as a sequence of numbered
// steps holding pass, fail and informational lines, and prints them in the
// console format used by the sdkprobe tools.
package check
