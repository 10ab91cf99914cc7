// ABOUTME: Deterministic fallback provider used when no AI backend is configured.
// ABOUTME: Yields a fixed explanation in small chunks to preserve streaming semantics.

package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrStreamClosed is returned by Recv after the stream has been closed.
var ErrStreamClosed = errors.New("explanation stream closed")

// cannedChunkSize mirrors the chunking of the original placeholder adapter.
const cannedChunkSize = 30

// cannedDelay spaces out chunks so consumers observe real streaming behavior.
const cannedDelay = 10 * time.Millisecond

// Canned is a deterministic provider requiring no credentials. It keeps the
// gateway usable out of the box and gives tests a predictable stream.
type Canned struct{}

// NewCanned returns the fallback provider.
func NewCanned() *Canned {
	return &Canned{}
}

// Name implements Provider.
func (c *Canned) Name() string { return "canned" }

// Stream implements Provider. The sequence is finite and derived only from
// the set name, so repeated calls produce identical chunks.
func (c *Canned) Stream(_ context.Context, setName string) (Stream, error) {
	text := fmt.Sprintf(
		"%s: sealed product demand is steady. Watch the booster box price against the 30-day sold "+
			"count: a rising price on thinning supply favors holding, while heavy listings suggest "+
			"waiting. Chase card value concentrates the set's worth; a reprint announcement would "+
			"undercut sealed prices. No AI provider is configured, so this is a canned summary.",
		setName,
	)

	var chunks []string
	for i := 0; i < len(text); i += cannedChunkSize {
		end := i + cannedChunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[i:end])
	}

	return &cannedStream{chunks: chunks, closed: make(chan struct{})}, nil
}

// cannedStream replays pre-split chunks with a small delay between them.
type cannedStream struct {
	chunks    []string
	idx       int
	closed    chan struct{}
	closeOnce sync.Once
}

func (s *cannedStream) Recv() (string, error) {
	select {
	case <-s.closed:
		return "", ErrStreamClosed
	default:
	}

	if s.idx >= len(s.chunks) {
		return "", io.EOF
	}

	select {
	case <-s.closed:
		return "", ErrStreamClosed
	case <-time.After(cannedDelay):
	}

	chunk := s.chunks[s.idx]
	s.idx++
	return chunk, nil
}

func (s *cannedStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
