package bridge

import (
	"encoding/json"

	"github.com/coder/websocket"
)

// Roles a connection may declare in its handshake.
const (
	RoleScene = "scene"
	RoleMCP   = "mcp"
)

// MaxMessageBytes caps a single websocket message on both sides of the
// bridge. Scene replies carry base64 screenshots and full scene graphs, which
// do not fit the transport's 32 KiB default.
const MaxMessageBytes = 1 << 20

// Close codes used when a connection is rejected. Each failure class gets its
// own code so clients can tell them apart.
const (
	CloseHandshakeTimeout websocket.StatusCode = 4000
	CloseInvalidHandshake websocket.StatusCode = 4001
	CloseUnknownRole      websocket.StatusCode = 4002
	CloseSceneConnected   websocket.StatusCode = 4003
)

// Handshake is the first message every connection must send.
type Handshake struct {
	Role    string `json:"role"`
	SceneID string `json:"sceneId,omitempty"`
	Client  string `json:"client,omitempty"`
}

// Command is the envelope for control-client commands. Type and Params are
// opaque to the bridge; only RequestID is inspected.
type Command struct {
	RequestID string          `json:"requestId"`
	Type      string          `json:"type,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Reply is the envelope for replies, both scene-originated and
// bridge-synthesized.
type Reply struct {
	RequestID string          `json:"requestId,omitempty"`
	Status    string          `json:"status"`
	SceneID   string          `json:"sceneId,omitempty"`
	Message   string          `json:"message,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

// errorReply builds a bridge-synthesized error for the given request id.
func errorReply(requestID, message string) Reply {
	return Reply{RequestID: requestID, Status: "error", Message: message}
}
