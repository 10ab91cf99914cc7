// ABOUTME: Package documentation for the streaming session state machine.
// ABOUTME: Explains the lifecycle states and the single-terminal-message rule.

// Package session models one streaming explanation conversation.
//
// A session moves through open, streaming, and exactly one of two terminal
// states. The wire protocol is three JSON frame shapes: {"chunk": s} for
// text fragments, {"done": true} for normal completion, and {"error": s}
// for failure. Chunks are relayed in provider order and a session emits
// exactly one terminal frame, after which further frames are rejected.
//
// The transition table lives in the pure functions Start and Next so the
// legality rules are testable without any I/O. Session.Run binds the table
// to a provider stream and an emit callback, releasing the stream exactly
// once on every exit path including client cancellation.
package session
