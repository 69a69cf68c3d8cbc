package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/aframe-mcp/scenebridge/internal/bridge"
	"github.com/aframe-mcp/scenebridge/internal/config"
)

func newHandler(t *testing.T) (*bridge.Broker, *httptest.Server) {
	t.Helper()
	var cfg config.BridgeConfig
	cfg.SetDefaults()
	broker := bridge.NewBroker(bridge.Options{})
	ts := httptest.NewServer(New(broker, cfg))
	t.Cleanup(ts.Close)
	return broker, ts
}

func TestHealthz(t *testing.T) {
	_, ts := newHandler(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newHandler(t)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestStateReflectsScene(t *testing.T) {
	_, ts := newHandler(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	hs, _ := json.Marshal(bridge.Handshake{Role: bridge.RoleScene, SceneID: "lobby"})
	if err := conn.Write(ctx, websocket.MessageText, hs); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("admission: %v", err)
	}

	resp, err := http.Get(ts.URL + "/state")
	if err != nil {
		t.Fatalf("GET /state: %v", err)
	}
	defer resp.Body.Close()
	var view StateView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !view.Bridge.SceneConnected || view.Bridge.SceneID != "lobby" {
		t.Fatalf("state: %+v", view.Bridge)
	}
}
