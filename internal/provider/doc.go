// Package provider implements the explanation adapter boundary.
//
// A Provider turns a card set name into a lazy, finite sequence of text
// chunks, the substance of an AI-generated investment explanation. The
// gateway consumes the sequence through the Stream interface and never
// inspects chunk contents.
//
// Three backends exist: anthropic (Claude Messages streaming), openai (Chat
// Completions streaming), and canned (deterministic fallback used when no
// provider is configured). Exactly one is selected by configuration at
// startup via New; the gateway holds a single Provider for its lifetime.
//
// Each Stream handle is owned by exactly one session. Close releases the
// production resource and may be called concurrently with a blocked Recv to
// abort it.
package provider
