// ABOUTME: Anthropic-backed explanation provider using the Messages streaming API.
// ABOUTME: Adapts SDK stream events into the provider chunk sequence.

package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/2389/chase-gateway/internal/config"
)

const defaultAnthropicModel = string(sdk.ModelClaudeSonnet4_5_20250929)

const defaultAnthropicMaxTokens = 1024

// anthropicMessages captures the subset of the Anthropic SDK used here, so
// tests can substitute a fake without network access.
type anthropicMessages interface {
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// Anthropic streams explanations from the Claude Messages API.
type Anthropic struct {
	msgs      anthropicMessages
	model     string
	maxTokens int64
}

// NewAnthropic builds the Anthropic provider from configuration.
func NewAnthropic(cfg config.ProviderConfig) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic provider requires an api key")
	}
	client := sdk.NewClient(option.WithAPIKey(cfg.APIKey))
	return newAnthropic(&client.Messages, cfg), nil
}

func newAnthropic(msgs anthropicMessages, cfg config.ProviderConfig) *Anthropic {
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &Anthropic{msgs: msgs, model: model, maxTokens: maxTokens}
}

// Name implements Provider.
func (a *Anthropic) Name() string { return "anthropic" }

// Stream implements Provider.
func (a *Anthropic) Stream(ctx context.Context, setName string) (Stream, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(explainPrompt(setName))),
		},
	}

	stream := a.msgs.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("anthropic messages stream: %w", err)
	}
	return &anthropicStream{stream: stream}, nil
}

// anthropicStream surfaces text deltas from the SDK event stream.
type anthropicStream struct {
	stream    *ssestream.Stream[sdk.MessageStreamEventUnion]
	closeOnce sync.Once
	closeErr  error
}

func (s *anthropicStream) Recv() (string, error) {
	for s.stream.Next() {
		event := s.stream.Current()
		deltaEvent, ok := event.AsAny().(sdk.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if delta, ok := deltaEvent.Delta.AsAny().(sdk.TextDelta); ok && delta.Text != "" {
			return delta.Text, nil
		}
	}
	if err := s.stream.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *anthropicStream) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.stream.Close() })
	return s.closeErr
}
