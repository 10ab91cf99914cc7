// ABOUTME: HTTP handlers for manifest discovery and the synchronous action endpoint.
// ABOUTME: Maps router errors onto HTTP status codes with JSON error bodies.

package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/2389/chase-gateway/internal/action"
)

// analyzeResponse is the synchronous action result. The metrics document is
// relayed untouched; the optional AI fields mirror the advisory use_ai flag.
type analyzeResponse struct {
	Metrics       json.RawMessage `json:"metrics"`
	AIExplanation string          `json:"ai_explanation,omitempty"`
	AIError       string          `json:"ai_error,omitempty"`
}

// handleManifest serves the tool manifest for discovery. The bytes are the
// same on every call.
func (g *Gateway) handleManifest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(g.manifest.JSON())
}

// handleMCP serves discovery on GET and dispatches action envelopes on POST.
func (g *Gateway) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		g.handleManifest(w, r)
	case http.MethodPost:
		g.dispatchAction(w, r, "")
	default:
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleAnalyze is the convenience endpoint; a missing action field is
// treated as analyze.
func (g *Gateway) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		g.sendJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	g.dispatchAction(w, r, action.KindAnalyze)
}

// dispatchAction parses the envelope, runs the analyze action, and writes
// the result. implied fills a missing action field for the convenience
// endpoint; the generic endpoint passes the zero value and requires the
// field to be present.
func (g *Gateway) dispatchAction(w http.ResponseWriter, r *http.Request, implied action.Kind) {
	env, err := action.ParseEnvelope(r.Body)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, errorMessage(err))
		return
	}
	if env.Action == "" && implied != "" {
		env.Action = implied
	}

	result, err := g.router.Analyze(r.Context(), env)
	if err != nil {
		g.writeActionError(w, err)
		return
	}

	resp := analyzeResponse{Metrics: result}
	if env.UseAI {
		explanation, err := g.collectExplanation(r, env.SetName)
		if err != nil {
			resp.AIError = err.Error()
		} else {
			resp.AIExplanation = explanation
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// collectExplanation drains one provider stream into a single string for
// the synchronous response path.
func (g *Gateway) collectExplanation(r *http.Request, setName string) (string, error) {
	stream, err := g.provider.Stream(r.Context(), setName)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var b strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		b.WriteString(chunk)
	}
}

// writeActionError maps router errors onto HTTP statuses: invalid envelopes
// are the client's fault, adapter failures are an upstream problem.
func (g *Gateway) writeActionError(w http.ResponseWriter, err error) {
	var failed *action.AnalysisFailedError
	switch {
	case errors.Is(err, action.ErrInvalidRequest):
		g.sendJSONError(w, http.StatusBadRequest, errorMessage(err))
	case errors.As(err, &failed):
		g.sendJSONError(w, http.StatusBadGateway, failed.Reason)
	default:
		g.logger.Error("action dispatch failed", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

// errorMessage strips the sentinel prefix so clients see the specific
// reason rather than the error chain.
func errorMessage(err error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, action.ErrInvalidRequest.Error()+": "); ok {
		return rest
	}
	return msg
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
