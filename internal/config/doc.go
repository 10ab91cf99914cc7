// Package config handles configuration loading for chase-gateway.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults; a missing config file
// is not an error for the server (Default() yields a working configuration
// with the canned explanation provider).
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	provider:
//	  api_key: "${AI_API_KEY}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	analyzer:
//	  request_timeout: "10s"
//	  cache_ttl: "5m"
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "localhost:8080"
//
// Analyzer settings (endpoint overrides are mainly for tests):
//
//	analyzer:
//	  request_timeout: "10s"
//	  cache_ttl: "5m"
//	  cache_size: 1024
//
// Explanation provider:
//
//	provider:
//	  name: "anthropic"   # anthropic, openai, canned
//	  api_key: "${AI_API_KEY}"
//	  model: "claude-sonnet-4-5"
//	  max_tokens: 1024
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
