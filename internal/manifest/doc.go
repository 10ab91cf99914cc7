// Package manifest serves the static capability description for chase-gateway.
//
// The manifest is the single discovery document: tool names and their JSON
// input schemas. It is compiled exactly once at process start behind a
// sync.Once guard and treated as immutable shared data afterwards, so every
// discovery response returns byte-identical JSON and no synchronization is
// needed on read.
//
// Input schemas are compiled with santhosh-tekuri/jsonschema so the action
// router can validate incoming envelopes against the same document that
// clients discover. A malformed schema fails Load and therefore startup.
package manifest
