// Package model defines the provider-agnostic abstractions used to drive a
// tool round against a language model.
//
// Core goals:
//   - Normalize tool / function call representation (ToolDefinition, core.FunctionCall)
//   - Keep request/response shapes minimal and transport independent
//   - Preserve provider values verbatim (finish reasons, ids) instead of
//     coercing them into a closed enum
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (model/anthropic, model/mistral) implement the Model interface so
// the tool runner stays decoupled from vendor SDKs.
package model
