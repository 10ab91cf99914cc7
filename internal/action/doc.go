// Package action defines the unified action envelope and routes it to the
// backend adapters.
//
// Both transports accept the same JSON shape:
//
//	{"action": "analyze", "set_name": "Evolving Skies", "use_ai": false}
//
// The Router validates an envelope (recognized action, non-empty trimmed
// set_name, manifest schema check) before it can reach an adapter, then
// dispatches: analyze calls the Analyzer synchronously, explain acquires an
// unconsumed chunk stream from the explanation provider.
//
// The use_ai flag is an opaque passthrough to the analyzer; the router never
// branches on it.
//
// Errors fall into three groups: validation failures wrap ErrInvalidRequest,
// analyzer failures become AnalysisFailedError, and provider failures become
// ExplanationFailedError. Adapter failure reasons are preserved verbatim.
package action
