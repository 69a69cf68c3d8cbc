package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/aframe-mcp/scenebridge/internal/logx"
	"github.com/aframe-mcp/scenebridge/internal/metrics"
	"github.com/aframe-mcp/scenebridge/internal/serverstate"
)

// WSHandler accepts bridge websocket connections. The first message on a
// connection must be a handshake declaring its role; the role then owns the
// connection for its remaining lifetime.
func (b *Broker) WSHandler(originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if serverstate.IsDraining() {
			http.Error(w, "draining", http.StatusServiceUnavailable)
			return
		}
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusInternalError, "server error")
		c.SetReadLimit(MaxMessageBytes)
		connID := uuid.NewString()
		ctx := r.Context()

		// The handshake wait is bounded by a timer, not a read context: a
		// cancelled read tears the connection down before a close frame can
		// be sent, and the peer must see the distinct timeout code.
		timer := time.AfterFunc(b.handshakeTimeout, func() {
			metrics.RecordHandshakeFailure("timeout")
			_ = c.Close(CloseHandshakeTimeout, "Handshake timeout")
		})
		_, data, err := c.Read(ctx)
		timer.Stop()
		if err != nil {
			return
		}
		var hs Handshake
		if err := json.Unmarshal(data, &hs); err != nil {
			metrics.RecordHandshakeFailure("invalid_payload")
			_ = c.Close(CloseInvalidHandshake, "Invalid handshake payload")
			return
		}
		switch hs.Role {
		case RoleScene:
			b.serveScene(ctx, c, connID, hs)
		case RoleMCP:
			b.serveControl(ctx, c, connID, hs)
		default:
			metrics.RecordHandshakeFailure("unknown_role")
			_ = c.Close(CloseUnknownRole, "Unknown role")
		}
	}
}

// serveScene runs the scene protocol: admit (or reject) the connection, then
// resolve pending entries from its replies until it closes.
func (b *Broker) serveScene(ctx context.Context, c *websocket.Conn, connID string, hs Handshake) {
	sc, ok := b.admitScene(c, connID, hs.SceneID)
	if !ok {
		metrics.RecordSceneRejected()
		rej, _ := json.Marshal(Reply{Status: "error", Message: "A scene is already connected"})
		wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_ = c.Write(wctx, websocket.MessageText, rej)
		cancel()
		_ = c.Close(CloseSceneConnected, "Scene already connected")
		return
	}
	defer b.releaseScene(connID)
	metrics.RecordConnection(RoleScene)

	ready, _ := json.Marshal(Reply{Status: "ready", SceneID: sc.sceneID})
	if err := sc.write(ctx, ready); err != nil {
		return
	}
	logx.Log.Info().Str("scene_id", sc.sceneID).Str("conn_id", connID).Msg("scene connected")

	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			logx.Log.Info().Str("scene_id", sc.sceneID).Msg("scene connection closed")
			return
		}
		var msg struct {
			RequestID string `json:"requestId"`
		}
		// A single malformed frame is not fatal to the scene connection.
		if err := json.Unmarshal(data, &msg); err != nil {
			logx.Log.Warn().Str("scene_id", sc.sceneID).Str("raw", truncate(data, 200)).Msg("invalid message from scene")
			continue
		}
		if msg.RequestID == "" {
			logx.Log.Warn().Str("scene_id", sc.sceneID).Str("raw", truncate(data, 200)).Msg("scene message missing requestId")
			continue
		}
		if !b.resolve(msg.RequestID, data) {
			// Timed out already, or an id the bridge never issued a command
			// for. Replies are not redelivered.
			logx.Log.Warn().Str("scene_id", sc.sceneID).Str("request_id", msg.RequestID).Msg("no pending request for reply")
		}
	}
}

// serveControl runs the control protocol: ack the connection, then relay
// commands one at a time until it closes. Commands from one control
// connection are strictly sequential; different connections are independent.
func (b *Broker) serveControl(ctx context.Context, c *websocket.Conn, connID string, hs Handshake) {
	metrics.RecordConnection(RoleMCP)
	ack, _ := json.Marshal(Reply{Status: "ok"})
	wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	err := c.Write(wctx, websocket.MessageText, ack)
	cancel()
	if err != nil {
		return
	}
	logx.Log.Info().Str("conn_id", connID).Str("client", hs.Client).Msg("mcp client connected")

	b.addControl()
	defer func() {
		b.removeControl()
		// Nobody is listening for these anymore; discard without resolving.
		b.cancelOwned(connID)
		logx.Log.Info().Str("conn_id", connID).Msg("mcp client disconnected")
	}()

	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		if err := b.handleCommand(ctx, c, connID, data); err != nil {
			return
		}
	}
}

// handleCommand relays one command and writes exactly one reply to the
// control client: the scene's answer, or a bridge-synthesized error. A
// non-nil return means the control connection is unusable.
func (b *Broker) handleCommand(ctx context.Context, c *websocket.Conn, connID string, data []byte) error {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		metrics.RecordCommand("invalid")
		return writeReply(ctx, c, Reply{Status: "error", Message: "Invalid command payload"})
	}
	if cmd.RequestID == "" {
		metrics.RecordCommand("invalid")
		return writeReply(ctx, c, Reply{Status: "error", Message: "Commands must include requestId"})
	}
	if b.currentScene() == nil {
		// Never queued awaiting a future scene.
		metrics.RecordCommand("no_scene")
		return writeReply(ctx, c, errorReply(cmd.RequestID, "No A-Frame scene is connected"))
	}

	start := time.Now()
	ch := b.register(cmd.RequestID, connID)
	if err := b.forwardToScene(ctx, data); err != nil {
		// Scene closed between the membership check and the send.
		b.unregister(cmd.RequestID)
		metrics.RecordCommand("send_failed")
		return writeReply(ctx, c, errorReply(cmd.RequestID, "Scene disconnected"))
	}
	logx.Log.Debug().Str("request_id", cmd.RequestID).Str("type", cmd.Type).Str("conn_id", connID).Msg("command forwarded")

	timer := time.NewTimer(b.responseTimeout)
	defer timer.Stop()
	select {
	case reply := <-ch:
		metrics.RecordCommand("reply")
		metrics.ObserveCommandDuration(time.Since(start))
		return writeRaw(ctx, c, reply)
	case <-timer.C:
		// The scene's eventual late reply, if any, finds no entry and is
		// silently dropped.
		b.unregister(cmd.RequestID)
		metrics.RecordCommand("timeout")
		logx.Log.Warn().Str("request_id", cmd.RequestID).Str("type", cmd.Type).Msg("timed out waiting for scene response")
		return writeReply(ctx, c, errorReply(cmd.RequestID, "Timed out waiting for scene response"))
	case <-ctx.Done():
		b.unregister(cmd.RequestID)
		return ctx.Err()
	}
}

func writeReply(ctx context.Context, c *websocket.Conn, rep Reply) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	return writeRaw(ctx, c, data)
}

func writeRaw(ctx context.Context, c *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.Write(ctx, websocket.MessageText, data)
}

func truncate(data []byte, n int) string {
	if len(data) > n {
		data = data[:n]
	}
	return string(data)
}
