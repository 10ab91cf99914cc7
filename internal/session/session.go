// ABOUTME: Streaming session state machine for explanation delivery.
// ABOUTME: Defines wire messages, legal state transitions, and the stream-consuming runner.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/2389/chase-gateway/internal/provider"
)

// State is the lifecycle position of a streaming session.
type State int

const (
	// StateOpen means the session is accepted but no stream has started.
	StateOpen State = iota
	// StateStreaming means chunks are being relayed.
	StateStreaming
	// StateClosed means the session ended normally after a done message.
	StateClosed
	// StateErrored means the session ended with an error message.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether the session can emit no further messages.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateErrored
}

// MessageKind discriminates the three wire message shapes.
type MessageKind int

const (
	KindChunk MessageKind = iota
	KindDone
	KindError
)

// Message is one frame sent to the client. Exactly one of the three shapes
// is serialized depending on Kind.
type Message struct {
	Kind  MessageKind
	Chunk string
	Err   string
}

// Chunk builds a text fragment message.
func Chunk(text string) Message {
	return Message{Kind: KindChunk, Chunk: text}
}

// Done builds the normal-completion terminal message.
func Done() Message {
	return Message{Kind: KindDone}
}

// ErrorMessage builds the failure terminal message carrying reason verbatim.
func ErrorMessage(reason string) Message {
	return Message{Kind: KindError, Err: reason}
}

// Terminal reports whether the message ends the session.
func (m Message) Terminal() bool {
	return m.Kind == KindDone || m.Kind == KindError
}

func (m Message) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case KindChunk:
		return json.Marshal(struct {
			Chunk string `json:"chunk"`
		}{m.Chunk})
	case KindDone:
		return json.Marshal(struct {
			Done bool `json:"done"`
		}{true})
	case KindError:
		return json.Marshal(struct {
			Error string `json:"error"`
		}{m.Err})
	default:
		return nil, fmt.Errorf("unknown message kind %d", m.Kind)
	}
}

// ErrTerminal is returned when a transition is attempted on a finished session.
var ErrTerminal = errors.New("session already terminal")

// Start advances an open session into streaming. It is the only way to
// reach StateStreaming.
func Start(s State) (State, error) {
	if s.Terminal() {
		return s, ErrTerminal
	}
	if s != StateOpen {
		return s, fmt.Errorf("cannot start streaming from %s", s)
	}
	return StateStreaming, nil
}

// Next returns the state after emitting m. Chunks require an active stream;
// done requires an active stream; an error message is legal from any
// non-terminal state so validation failures can end a session before
// streaming begins.
func Next(s State, m Message) (State, error) {
	if s.Terminal() {
		return s, ErrTerminal
	}
	switch m.Kind {
	case KindChunk:
		if s != StateStreaming {
			return s, fmt.Errorf("chunk not allowed in %s", s)
		}
		return StateStreaming, nil
	case KindDone:
		if s != StateStreaming {
			return s, fmt.Errorf("done not allowed in %s", s)
		}
		return StateClosed, nil
	case KindError:
		return StateErrored, nil
	default:
		return s, fmt.Errorf("unknown message kind %d", m.Kind)
	}
}

// EmitFunc delivers one message to the client. A non-nil error means the
// client is unreachable and the session should stop.
type EmitFunc func(Message) error

// Session tracks one streaming conversation. All state mutation goes
// through the transition table so illegal frames cannot be emitted.
type Session struct {
	ID     string
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates an open session with a fresh identifier.
func New(logger *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:     id,
		logger: logger.With("component", "session", "session_id", id),
		state:  StateOpen,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// emit validates the transition, applies it, then delivers the message.
// The state is advanced before delivery so a concurrent caller can never
// slip a second terminal frame through.
func (s *Session) emit(emit EmitFunc, m Message) error {
	s.mu.Lock()
	next, err := Next(s.state, m)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.mu.Unlock()
	return emit(m)
}

// Fail ends the session with an error message. The reason is sent verbatim.
// Calling Fail on an already-terminal session is a no-op.
func (s *Session) Fail(emit EmitFunc, reason string) error {
	err := s.emit(emit, ErrorMessage(reason))
	if errors.Is(err, ErrTerminal) {
		return nil
	}
	return err
}

// Run consumes the provider stream and relays each chunk through emit,
// preserving order, then sends exactly one terminal message. The stream is
// released exactly once on every exit path. If ctx is canceled the stream
// is closed to unblock Recv and no terminal message is sent, since the
// client initiated the teardown.
func (s *Session) Run(ctx context.Context, stream provider.Stream, emit EmitFunc) error {
	s.mu.Lock()
	next, err := Start(s.state)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.mu.Unlock()

	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() {
			if err := stream.Close(); err != nil {
				s.logger.Debug("stream close failed", "error", err)
			}
		})
	}
	defer release()

	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			release()
		case <-finished:
		}
	}()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			s.logger.Debug("stream complete")
			return s.emit(emit, Done())
		}
		if err != nil {
			if ctx.Err() != nil {
				// Client went away; nobody is listening for a terminal frame.
				s.markErrored()
				s.logger.Debug("session canceled by client")
				return ctx.Err()
			}
			s.logger.Warn("stream failed", "error", err)
			return s.emit(emit, ErrorMessage(err.Error()))
		}
		if err := s.emit(emit, Chunk(chunk)); err != nil {
			s.markErrored()
			s.logger.Debug("emit failed, stopping stream", "error", err)
			return err
		}
	}
}

// markErrored forces the terminal state without emitting, for teardown
// paths where the client is already gone.
func (s *Session) markErrored() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Terminal() {
		s.state = StateErrored
	}
}
