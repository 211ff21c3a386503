// Package fixture holds the hand-authored provider payloads used in place of
// real API responses.
//
// Each payload starts from a documented response shape (embedded JSON under
// payloads/) and is then extended with fields or enum values the SDKs do not
// declare, using sjson paths:
//
//	body := fixture.MustInject(fixture.AnthropicBase(), map[string]any{
//		"undocumented_property": map[string]any{"new_feature": "..."},
//	})
package fixture
