// ABOUTME: Action envelope types and the gateway error taxonomy.
// ABOUTME: One JSON request shape is shared by both transports.

package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind tags the requested operation in an action envelope.
type Kind string

// Recognized action kinds.
const (
	KindAnalyze Kind = "analyze"
	KindExplain Kind = "explain"
)

// Envelope is the single JSON request shape accepted by both gateways.
type Envelope struct {
	Action  Kind   `json:"action"`
	SetName string `json:"set_name"`
	UseAI   bool   `json:"use_ai,omitempty"`
}

// ErrInvalidRequest marks a malformed or unrecognized envelope, or an action
// sent to the wrong transport. Such requests never reach an adapter.
var ErrInvalidRequest = errors.New("invalid request")

// AnalysisFailedError reports that the analysis adapter could not produce a
// result. The reason is surfaced verbatim to the caller.
type AnalysisFailedError struct {
	Reason string
}

func (e *AnalysisFailedError) Error() string { return e.Reason }

// ExplanationFailedError reports that the explanation provider failed before
// or during streaming. The reason is surfaced verbatim to the caller.
type ExplanationFailedError struct {
	Reason string
}

func (e *ExplanationFailedError) Error() string { return e.Reason }

// ParseEnvelope decodes an action envelope from the given reader. Set names
// are trimmed here so validation and dispatch always see the canonical form.
func ParseEnvelope(r io.Reader) (*Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON body", ErrInvalidRequest)
	}
	env.SetName = strings.TrimSpace(env.SetName)
	return &env, nil
}

// ParseEnvelopeBytes decodes an action envelope from a raw message, used by
// the streaming transport where frames arrive as byte slices.
func ParseEnvelopeBytes(data []byte) (*Envelope, error) {
	return ParseEnvelope(strings.NewReader(string(data)))
}
