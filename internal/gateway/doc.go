// ABOUTME: Package documentation for the gateway.
// ABOUTME: Describes the endpoint surface and the adapter wiring.

// Package gateway exposes the action endpoints over HTTP and WebSocket.
//
// Endpoints:
//
//	GET  /health          liveness probe
//	GET  /.well-known/mcp tool manifest for discovery
//	GET  /mcp             manifest alias
//	POST /mcp             generic action envelope (analyze only)
//	POST /analyze         convenience form of the analyze action
//	GET  /mcp/ws          WebSocket streaming for the explain action
//
// The gateway never interprets analysis documents or explanation chunks; it
// validates envelopes, dispatches through the action router, and relays
// adapter output. Explain is streaming-only and is rejected on the
// synchronous endpoints.
package gateway
