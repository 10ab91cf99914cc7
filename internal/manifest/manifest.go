// ABOUTME: Static capability manifest served on the discovery endpoints.
// ABOUTME: Compiled once at startup; tool input schemas are reused for envelope validation.

package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Tool names advertised in the manifest.
const (
	ToolAnalyzeSet = "analyze_set"
	ToolExplainSet = "explain_set"
)

// Tool describes one capability in the manifest.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Document is the JSON shape served to MCP-aware clients. It carries no
// version field: the manifest is the whole of the protocol contract.
type Document struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Tools       []Tool `json:"tools"`
}

// Manifest holds the compiled capability description. It is immutable after
// Load and safe for concurrent use without locking.
type Manifest struct {
	doc     Document
	raw     []byte
	schemas map[string]*jsonschema.Schema
}

const analyzeInputSchema = `{
	"type": "object",
	"properties": {
		"set_name": {
			"type": "string",
			"minLength": 1,
			"description": "Name of the card set to analyze, e.g. \"Evolving Skies\""
		},
		"use_ai": {
			"type": "boolean",
			"description": "Forwarded to the analyzer as an advisory flag"
		}
	},
	"required": ["set_name"]
}`

const explainInputSchema = `{
	"type": "object",
	"properties": {
		"set_name": {
			"type": "string",
			"minLength": 1,
			"description": "Name of the card set to explain"
		}
	},
	"required": ["set_name"]
}`

var (
	loadOnce sync.Once
	loaded   *Manifest
	loadErr  error
)

// Load compiles the built-in manifest exactly once for the process lifetime
// and returns the shared instance. A schema that fails to compile is a
// startup-fatal condition, never a per-request error.
func Load() (*Manifest, error) {
	loadOnce.Do(func() {
		loaded, loadErr = build()
	})
	return loaded, loadErr
}

// build assembles the document, compiles every tool schema, and serializes
// the canonical bytes served on discovery.
func build() (*Manifest, error) {
	doc := Document{
		Name:        "chase-gateway",
		Description: "Investment analysis gateway for trading card sets",
		Tools: []Tool{
			{
				Name:        ToolAnalyzeSet,
				Description: "Compute investment metrics for a card set (prices, sales velocity, chase cards)",
				InputSchema: json.RawMessage(analyzeInputSchema),
			},
			{
				Name:        ToolExplainSet,
				Description: "Stream an AI-generated investment explanation for a card set",
				InputSchema: json.RawMessage(explainInputSchema),
			},
		},
	}

	schemas := make(map[string]*jsonschema.Schema, len(doc.Tools))
	compiler := jsonschema.NewCompiler()
	for _, tool := range doc.Tools {
		url := "manifest:///tools/" + tool.Name + ".json"
		resource, err := jsonschema.UnmarshalJSON(bytes.NewReader(tool.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("parsing input schema for tool %s: %w", tool.Name, err)
		}
		if err := compiler.AddResource(url, resource); err != nil {
			return nil, fmt.Errorf("registering input schema for tool %s: %w", tool.Name, err)
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compiling input schema for tool %s: %w", tool.Name, err)
		}
		schemas[tool.Name] = schema
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("serializing manifest: %w", err)
	}

	return &Manifest{doc: doc, raw: raw, schemas: schemas}, nil
}

// JSON returns the canonical serialized manifest. The same bytes are returned
// for the process lifetime, so discovery responses are byte-identical.
func (m *Manifest) JSON() []byte {
	return m.raw
}

// Tools returns the tool descriptors in manifest order.
func (m *Manifest) Tools() []Tool {
	return m.doc.Tools
}

// ValidateInput checks a decoded JSON value against the named tool's input
// schema. Unknown tool names are a caller bug and reported as an error.
func (m *Manifest) ValidateInput(tool string, input any) error {
	schema, ok := m.schemas[tool]
	if !ok {
		return fmt.Errorf("no such tool in manifest: %s", tool)
	}
	if err := schema.Validate(input); err != nil {
		return fmt.Errorf("input for %s: %w", tool, err)
	}
	return nil
}
