// Package sceneclient implements the control side of the bridge protocol:
// dial, handshake as an MCP client, send one command and await the
// correlated reply.
package sceneclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/aframe-mcp/scenebridge/internal/bridge"
	"github.com/aframe-mcp/scenebridge/internal/config"
)

// ErrMismatchedReply is returned when the bridge answers with a different
// requestId than the one sent. The bridge guarantees correlation, so this
// indicates a broken bridge or proxy.
var ErrMismatchedReply = errors.New("mismatched reply from bridge")

// Client issues commands to an A-Frame scene through the bridge. Each command
// uses a fresh connection; the bridge holds no per-client state between
// commands.
type Client struct {
	BridgeURL       string
	ClientName      string
	ConnectTimeout  time.Duration
	ResponseTimeout time.Duration
}

// New constructs a Client from the MCP tool server configuration.
func New(cfg config.MCPConfig) *Client {
	return &Client{
		BridgeURL:       cfg.BridgeURL,
		ClientName:      cfg.ClientName,
		ConnectTimeout:  cfg.ConnectTimeout,
		ResponseTimeout: cfg.ResponseTimeout,
	}
}

// Send forwards one command to the scene and returns its result payload.
// Error-status replies, including bridge-synthesized ones, surface as errors.
func (c *Client) Send(ctx context.Context, commandType string, params any) (json.RawMessage, error) {
	requestID := uuid.NewString()

	dctx, cancel := context.WithTimeout(ctx, c.ConnectTimeout)
	conn, _, err := websocket.Dial(dctx, c.BridgeURL, nil)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("dial bridge: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(bridge.MaxMessageBytes)

	hs, err := json.Marshal(bridge.Handshake{Role: bridge.RoleMCP, Client: c.ClientName})
	if err != nil {
		return nil, err
	}
	if err := conn.Write(ctx, websocket.MessageText, hs); err != nil {
		return nil, fmt.Errorf("handshake: %w", err)
	}
	ack, err := c.readReply(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("bridge acknowledgement: %w", err)
	}
	if ack.Status != "ok" && ack.Status != "ready" {
		if ack.Message != "" {
			return nil, fmt.Errorf("bridge rejected connection: %s", ack.Message)
		}
		return nil, errors.New("bridge rejected connection")
	}

	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	cmd, err := json.Marshal(bridge.Command{RequestID: requestID, Type: commandType, Params: rawParams})
	if err != nil {
		return nil, err
	}
	if err := conn.Write(ctx, websocket.MessageText, cmd); err != nil {
		return nil, fmt.Errorf("send %s: %w", commandType, err)
	}

	rep, err := c.readReply(ctx, conn)
	if err != nil {
		return nil, fmt.Errorf("awaiting reply to %s: %w", commandType, err)
	}
	if rep.RequestID != requestID {
		return nil, ErrMismatchedReply
	}
	if rep.Status == "error" {
		if rep.Message != "" {
			return nil, errors.New(rep.Message)
		}
		return nil, errors.New("unknown bridge error")
	}
	if len(rep.Result) == 0 {
		return json.RawMessage(`{}`), nil
	}
	return rep.Result, nil
}

// Ping performs a liveness probe against the bridge and connected scene.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Send(ctx, "ping", map[string]any{})
	return err
}

func (c *Client) readReply(ctx context.Context, conn *websocket.Conn) (bridge.Reply, error) {
	rctx, cancel := context.WithTimeout(ctx, c.ResponseTimeout)
	defer cancel()
	_, data, err := conn.Read(rctx)
	if err != nil {
		return bridge.Reply{}, err
	}
	var rep bridge.Reply
	if err := json.Unmarshal(data, &rep); err != nil {
		return bridge.Reply{}, fmt.Errorf("invalid reply: %w", err)
	}
	return rep, nil
}
