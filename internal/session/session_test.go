// ABOUTME: Tests for the session transition table and the stream runner.
// ABOUTME: Covers chunk ordering, single terminal frame, failure relay, and cancellation.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedStream replays a fixed series of Recv results.
type scriptedStream struct {
	chunks []string
	err    error // returned after chunks are exhausted; nil means io.EOF

	mu         sync.Mutex
	idx        int
	closeCount int32
}

func (s *scriptedStream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx < len(s.chunks) {
		c := s.chunks[s.idx]
		s.idx++
		return c, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *scriptedStream) Close() error {
	atomic.AddInt32(&s.closeCount, 1)
	return nil
}

// blockingStream parks Recv until Close is called.
type blockingStream struct {
	closed     chan struct{}
	closeOnce  sync.Once
	closeCount int32
}

func newBlockingStream() *blockingStream {
	return &blockingStream{closed: make(chan struct{})}
}

func (s *blockingStream) Recv() (string, error) {
	<-s.closed
	return "", errors.New("stream closed")
}

func (s *blockingStream) Close() error {
	atomic.AddInt32(&s.closeCount, 1)
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// collector records emitted messages and can simulate a dead client.
type collector struct {
	mu       sync.Mutex
	messages []Message
	failOn   int // emit index that returns an error; -1 for never
}

func newCollector() *collector { return &collector{failOn: -1} }

func (c *collector) emit(m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failOn >= 0 && len(c.messages) == c.failOn {
		return errors.New("write: broken pipe")
	}
	c.messages = append(c.messages, m)
	return nil
}

func (c *collector) all() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

func TestStart(t *testing.T) {
	next, err := Start(StateOpen)
	require.NoError(t, err)
	assert.Equal(t, StateStreaming, next)

	_, err = Start(StateStreaming)
	assert.Error(t, err)

	_, err = Start(StateClosed)
	assert.ErrorIs(t, err, ErrTerminal)

	_, err = Start(StateErrored)
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		msg     Message
		want    State
		wantErr bool
	}{
		{name: "chunk while streaming", state: StateStreaming, msg: Chunk("a"), want: StateStreaming},
		{name: "done while streaming", state: StateStreaming, msg: Done(), want: StateClosed},
		{name: "error while streaming", state: StateStreaming, msg: ErrorMessage("boom"), want: StateErrored},
		{name: "error while open", state: StateOpen, msg: ErrorMessage("bad request"), want: StateErrored},
		{name: "chunk while open", state: StateOpen, msg: Chunk("a"), wantErr: true},
		{name: "done while open", state: StateOpen, msg: Done(), wantErr: true},
		{name: "chunk after closed", state: StateClosed, msg: Chunk("a"), wantErr: true},
		{name: "done after closed", state: StateClosed, msg: Done(), wantErr: true},
		{name: "error after errored", state: StateErrored, msg: ErrorMessage("again"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := Next(tt.state, tt.msg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.state, next, "failed transition must not move the state")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, next)
		})
	}
}

func TestMessage_MarshalJSON(t *testing.T) {
	chunk, err := json.Marshal(Chunk("hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"chunk":"hello"}`, string(chunk))

	done, err := json.Marshal(Done())
	require.NoError(t, err)
	assert.JSONEq(t, `{"done":true}`, string(done))

	fail, err := json.Marshal(ErrorMessage("upstream timeout"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"upstream timeout"}`, string(fail))
}

func TestRun_RelaysChunksInOrder(t *testing.T) {
	s := New(slog.Default())
	stream := &scriptedStream{chunks: []string{"alpha", "beta", "gamma"}}
	sink := newCollector()

	err := s.Run(context.Background(), stream, sink.emit)
	require.NoError(t, err)

	got := sink.all()
	require.Len(t, got, 4)
	assert.Equal(t, Chunk("alpha"), got[0])
	assert.Equal(t, Chunk("beta"), got[1])
	assert.Equal(t, Chunk("gamma"), got[2])
	assert.Equal(t, Done(), got[3])

	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, int32(1), atomic.LoadInt32(&stream.closeCount), "stream released exactly once")
}

func TestRun_MidStreamFailure(t *testing.T) {
	s := New(slog.Default())
	stream := &scriptedStream{chunks: []string{"partial"}, err: errors.New("upstream timeout")}
	sink := newCollector()

	err := s.Run(context.Background(), stream, sink.emit)
	require.NoError(t, err, "error frame delivery is the successful handling of the failure")

	got := sink.all()
	require.Len(t, got, 2)
	assert.Equal(t, Chunk("partial"), got[0])
	assert.Equal(t, ErrorMessage("upstream timeout"), got[1], "reason must be relayed verbatim")

	assert.Equal(t, StateErrored, s.State())
	assert.Equal(t, int32(1), atomic.LoadInt32(&stream.closeCount))
}

func TestRun_ClientCancellation(t *testing.T) {
	s := New(slog.Default())
	stream := newBlockingStream()
	sink := newCollector()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, stream, sink.emit) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	assert.Empty(t, sink.all(), "no terminal frame after client cancellation")
	assert.Equal(t, StateErrored, s.State())
	assert.GreaterOrEqual(t, atomic.LoadInt32(&stream.closeCount), int32(1), "cancellation must release the stream")
}

func TestRun_EmitFailureStopsStream(t *testing.T) {
	s := New(slog.Default())
	stream := &scriptedStream{chunks: []string{"a", "b", "c"}}
	sink := newCollector()
	sink.failOn = 1 // second frame hits a dead client

	err := s.Run(context.Background(), stream, sink.emit)
	require.Error(t, err)

	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, Chunk("a"), got[0])
	assert.Equal(t, StateErrored, s.State())
	assert.Equal(t, int32(1), atomic.LoadInt32(&stream.closeCount))
}

func TestRun_RejectsSecondRun(t *testing.T) {
	s := New(slog.Default())
	sink := newCollector()

	err := s.Run(context.Background(), &scriptedStream{}, sink.emit)
	require.NoError(t, err)

	err = s.Run(context.Background(), &scriptedStream{}, sink.emit)
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestFail(t *testing.T) {
	s := New(slog.Default())
	sink := newCollector()

	require.NoError(t, s.Fail(sink.emit, "unknown action"))
	assert.Equal(t, StateErrored, s.State())

	got := sink.all()
	require.Len(t, got, 1)
	assert.Equal(t, ErrorMessage("unknown action"), got[0])

	// A second failure after the terminal frame is silently dropped.
	require.NoError(t, s.Fail(sink.emit, "again"))
	assert.Len(t, sink.all(), 1)
}
