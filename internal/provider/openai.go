// ABOUTME: OpenAI-backed explanation provider using Chat Completions streaming.
// ABOUTME: Adapts completion chunk deltas into the provider chunk sequence.

package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/2389/chase-gateway/internal/config"
)

const defaultOpenAIModel = openai.ChatModelGPT4o

// OpenAI streams explanations from the Chat Completions API.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int64
}

// NewOpenAI builds the OpenAI provider from configuration.
func NewOpenAI(cfg config.ProviderConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai provider requires an api key")
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{
		client:    openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     model,
		maxTokens: int64(cfg.MaxTokens),
	}, nil
}

// Name implements Provider.
func (o *OpenAI) Name() string { return "openai" }

// Stream implements Provider.
func (o *OpenAI) Stream(ctx context.Context, setName string) (Stream, error) {
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(explainPrompt(setName)),
		},
	}
	if o.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(o.maxTokens)
	}

	stream := o.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("openai chat completions stream: %w", err)
	}
	return &openaiStream{stream: stream}, nil
}

// openaiStream surfaces content deltas from the SDK event stream.
type openaiStream struct {
	stream    *ssestream.Stream[openai.ChatCompletionChunk]
	closeOnce sync.Once
	closeErr  error
}

func (s *openaiStream) Recv() (string, error) {
	for s.stream.Next() {
		chunk := s.stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
	if err := s.stream.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *openaiStream) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.stream.Close() })
	return s.closeErr
}
