// ABOUTME: WebSocket handler for streaming explanations.
// ABOUTME: Binds one connection to one streaming session and relays its frames.

package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/2389/chase-gateway/internal/action"
	"github.com/2389/chase-gateway/internal/session"
)

const closeWriteTimeout = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The gateway is origin-agnostic; discovery clients connect from anywhere.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStream upgrades the connection and runs one streaming session over
// it. The first frame must be an explain envelope; later inbound frames are
// ignored, and a closed connection cancels the provider stream.
func (g *Gateway) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sess := session.New(g.logger)
	emit := func(m session.Message) error {
		return conn.WriteJSON(m)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		g.logger.Debug("client closed before sending envelope", "session_id", sess.ID)
		return
	}

	env, err := action.ParseEnvelopeBytes(data)
	if err != nil {
		_ = sess.Fail(emit, errorMessage(err))
		g.closeStream(conn)
		return
	}

	stream, err := g.router.Explain(r.Context(), env)
	if err != nil {
		_ = sess.Fail(emit, errorMessage(err))
		g.closeStream(conn)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain inbound frames so a dropped connection is noticed promptly.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	if err := sess.Run(ctx, stream, emit); err != nil && !errors.Is(err, context.Canceled) {
		g.logger.Debug("streaming session ended", "session_id", sess.ID, "error", err)
	}
	g.closeStream(conn)
}

// closeStream sends a normal close frame; the client may already be gone.
func (g *Gateway) closeStream(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
}
