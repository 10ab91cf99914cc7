// ABOUTME: Explanation provider boundary with backend selection.
// ABOUTME: Providers turn a set name into a lazy, finite sequence of text chunks.

package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/chase-gateway/internal/config"
)

// Stream is a lazy, finite sequence of explanation chunks. Recv blocks until
// the next chunk is produced and returns io.EOF when the sequence ends
// normally. Close releases the underlying production resource; it is safe to
// call more than once and unblocks a pending Recv.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Provider produces explanation streams for card sets. Exactly one backend is
// selected by configuration at startup; each Stream call yields a handle
// owned exclusively by its session.
type Provider interface {
	Name() string
	Stream(ctx context.Context, setName string) (Stream, error)
}

// New selects and constructs the provider backend named in the configuration.
func New(cfg config.ProviderConfig, logger *slog.Logger) (Provider, error) {
	switch cfg.Name {
	case "anthropic":
		return NewAnthropic(cfg)
	case "openai":
		return NewOpenAI(cfg)
	case "canned", "":
		logger.Warn("no AI provider configured - using canned explanations")
		return NewCanned(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Name)
	}
}

// explainPrompt is the instruction sent to AI backends.
func explainPrompt(setName string) string {
	return fmt.Sprintf(
		"You are a trading card market analyst. Explain the investment outlook for the card set %q: "+
			"sealed box price trajectory, sales velocity, chase cards, reprint risk, and collector sentiment. "+
			"Be concise and concrete.",
		setName,
	)
}
