// ABOUTME: Action router that validates envelopes and dispatches to adapters.
// ABOUTME: Validation failures never reach an adapter; dispatch holds no shared mutable state.

package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/2389/chase-gateway/internal/manifest"
	"github.com/2389/chase-gateway/internal/provider"
)

// Analyzer is the synchronous analysis adapter boundary. The returned
// document is opaque to the gateway: it is serialized to the caller verbatim.
type Analyzer interface {
	Analyze(ctx context.Context, setName string, useAI bool) (json.RawMessage, error)
}

// Router validates action envelopes and dispatches them to the configured
// adapters. All fields are set at construction and never mutated, so a single
// Router is safe for concurrent use by every request and session.
type Router struct {
	manifest *manifest.Manifest
	analyzer Analyzer
	provider provider.Provider
	logger   *slog.Logger
}

// NewRouter creates a router over the given manifest and adapters.
func NewRouter(m *manifest.Manifest, analyzer Analyzer, prov provider.Provider, logger *slog.Logger) *Router {
	return &Router{
		manifest: m,
		analyzer: analyzer,
		provider: prov,
		logger:   logger,
	}
}

// Analyze validates an analyze envelope and invokes the analysis adapter.
// Adapter failures are wrapped as AnalysisFailedError with the reason intact.
func (r *Router) Analyze(ctx context.Context, env *Envelope) (json.RawMessage, error) {
	if err := r.validate(env, KindAnalyze, manifest.ToolAnalyzeSet); err != nil {
		return nil, err
	}

	result, err := r.analyzer.Analyze(ctx, env.SetName, env.UseAI)
	if err != nil {
		r.logger.Warn("analysis failed", "set_name", env.SetName, "error", err)
		return nil, &AnalysisFailedError{Reason: err.Error()}
	}
	return result, nil
}

// Explain validates an explain envelope and acquires a chunk stream handle
// from the explanation provider. The handle is returned unconsumed: routing
// never blocks on chunk production. Ownership transfers to the caller.
func (r *Router) Explain(ctx context.Context, env *Envelope) (provider.Stream, error) {
	if err := r.validate(env, KindExplain, manifest.ToolExplainSet); err != nil {
		return nil, err
	}

	stream, err := r.provider.Stream(ctx, env.SetName)
	if err != nil {
		r.logger.Warn("explanation stream failed", "set_name", env.SetName, "error", err)
		return nil, &ExplanationFailedError{Reason: err.Error()}
	}
	return stream, nil
}

// validate checks the envelope shape and its arguments against the manifest
// tool schema. The returned error wraps ErrInvalidRequest.
func (r *Router) validate(env *Envelope, want Kind, tool string) error {
	switch env.Action {
	case KindAnalyze, KindExplain:
	case "":
		return fmt.Errorf("%w: action is required", ErrInvalidRequest)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidRequest, env.Action)
	}

	if env.Action != want {
		return fmt.Errorf("%w: action %q not accepted here", ErrInvalidRequest, env.Action)
	}

	if env.SetName == "" {
		return fmt.Errorf("%w: set_name is required", ErrInvalidRequest)
	}

	input := map[string]any{"set_name": env.SetName}
	if env.Action == KindAnalyze {
		input["use_ai"] = env.UseAI
	}
	if err := r.manifest.ValidateInput(tool, input); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	return nil
}
