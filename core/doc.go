// Package core provides the provider-neutral conversation types shared by the
// model adapters, the tool subsystem and the tool runner:
//
//   - Content / Part: role-based messages made of text, function calls and
//     function responses
//   - ToolContext: scoped execution surface handed to tool implementations
//
// The types carry no vendor SDK dependency so that a tool round trip can be
// described once and replayed against any provider adapter.
package core
