// Package jsdecode turns the obfuscated script payloads served by the video
// host back into plain text without running them.
//
// Two pieces cooperate:
//
//   - Decoders recognise a payload shape ("packer/v1", "evalstring/v1") and
//     reverse it as a pure data transformation. A payload nobody recognises
//     is reported as unsupported; supporting it means adding a decoder.
//   - Scope is a restricted evaluator for the plain scripts around those
//     payloads. It records variables whose values are string or number
//     expressions and functions whose body is a single return, and skips
//     every other statement. There are no loops, objects or host bindings.
//
// Typical use by the locator:
//
//	scope := jsdecode.NewScope()
//	_ = scope.Run(bootstrapJS)
//	_ = scope.Run(jsdecode.StripIIFE(firstScript))
//	text, _, err := jsdecode.Decode(secondScript, scope)
//	url, err := scope.EvalTemplate(hrefFragment)
package jsdecode
