package sceneclient_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/aframe-mcp/scenebridge/internal/bridge"
	"github.com/aframe-mcp/scenebridge/internal/sceneclient"
)

func startBridge(t *testing.T) string {
	t.Helper()
	b := bridge.NewBroker(bridge.Options{})
	srv := httptest.NewServer(b.WSHandler(nil))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func startScene(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("scene dial: %v", err)
	}
	hs, _ := json.Marshal(bridge.Handshake{Role: bridge.RoleScene})
	if err := conn.Write(ctx, websocket.MessageText, hs); err != nil {
		t.Fatalf("scene handshake: %v", err)
	}
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("scene admission: %v", err)
	}
	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var cmd bridge.Command
			if json.Unmarshal(data, &cmd) != nil {
				continue
			}
			var rep bridge.Reply
			switch cmd.Type {
			case "ping":
				rep = bridge.Reply{RequestID: cmd.RequestID, Status: "ok", Result: json.RawMessage(`{"pong":true}`)}
			case "find_entity":
				rep = bridge.Reply{RequestID: cmd.RequestID, Status: "ok", Result: json.RawMessage(`{"selector":"#box"}`)}
			default:
				rep = bridge.Reply{RequestID: cmd.RequestID, Status: "error", Message: "Unknown command: " + cmd.Type}
			}
			b, _ := json.Marshal(rep)
			if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
				return
			}
		}
	}()
}

func newClient(url string) *sceneclient.Client {
	return &sceneclient.Client{
		BridgeURL:       url,
		ClientName:      "test",
		ConnectTimeout:  2 * time.Second,
		ResponseTimeout: 2 * time.Second,
	}
}

func TestSendRoundTrip(t *testing.T) {
	url := startBridge(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	startScene(t, ctx, url)

	cl := newClient(url)
	result, err := cl.Send(ctx, "find_entity", map[string]any{"selector": "#box"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	var out struct {
		Selector string `json:"selector"`
	}
	if err := json.Unmarshal(result, &out); err != nil || out.Selector != "#box" {
		t.Fatalf("result: %s err=%v", result, err)
	}
}

func TestSendErrorReply(t *testing.T) {
	url := startBridge(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	startScene(t, ctx, url)

	cl := newClient(url)
	_, err := cl.Send(ctx, "explode", nil)
	if err == nil || !strings.Contains(err.Error(), "Unknown command") {
		t.Fatalf("expected scene error, got %v", err)
	}
}

func TestSendWithoutScene(t *testing.T) {
	url := startBridge(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cl := newClient(url)
	_, err := cl.Send(ctx, "ping", nil)
	if err == nil || !strings.Contains(err.Error(), "No A-Frame scene is connected") {
		t.Fatalf("expected no-scene error, got %v", err)
	}
}

func TestPing(t *testing.T) {
	url := startBridge(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	startScene(t, ctx, url)

	cl := newClient(url)
	if err := cl.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}
