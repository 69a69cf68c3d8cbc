package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBridgeConfigDefaults(t *testing.T) {
	var cfg BridgeConfig
	cfg.SetDefaults()
	if cfg.Addr() != "127.0.0.1:8765" {
		t.Fatalf("addr: %s", cfg.Addr())
	}
	if cfg.WSPath != "/ws" {
		t.Fatalf("ws path: %s", cfg.WSPath)
	}
	if cfg.HandshakeTimeout != 5*time.Second || cfg.ResponseTimeout != 20*time.Second {
		t.Fatalf("timeouts: %v %v", cfg.HandshakeTimeout, cfg.ResponseTimeout)
	}
}

func TestBridgeConfigEnvOverlay(t *testing.T) {
	t.Setenv("AFRAME_BRIDGE_HOST", "0.0.0.0")
	t.Setenv("AFRAME_BRIDGE_PORT", "9001")
	t.Setenv("AFRAME_BRIDGE_RESPONSE_TIMEOUT", "2.5")
	t.Setenv("ALLOWED_ORIGINS", "https://play.example.com, https://dev.example.com")
	t.Setenv("AFRAME_LOG_LEVEL", "debug")
	var cfg BridgeConfig
	cfg.SetDefaults()
	cfg.ApplyEnv()
	if cfg.Addr() != "0.0.0.0:9001" {
		t.Fatalf("addr: %s", cfg.Addr())
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level: %s", cfg.LogLevel)
	}
	if cfg.ResponseTimeout != 2500*time.Millisecond {
		t.Fatalf("response timeout: %v", cfg.ResponseTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://play.example.com" {
		t.Fatalf("origins: %v", cfg.AllowedOrigins)
	}
}

func TestBridgeConfigLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	data := []byte("port: 8800\nws_path: /bridge\nresponse_timeout: 3s\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	var cfg BridgeConfig
	cfg.SetDefaults()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8800 || cfg.WSPath != "/bridge" || cfg.ResponseTimeout != 3*time.Second {
		t.Fatalf("loaded: %+v", cfg)
	}
}

func TestMCPConfigEnvOverlay(t *testing.T) {
	t.Setenv("AFRAME_BRIDGE_URL", "ws://bridge:9000/ws")
	t.Setenv("AFRAME_RESPONSE_TIMEOUT", "30")
	var cfg MCPConfig
	cfg.SetDefaults()
	cfg.ApplyEnv()
	if cfg.BridgeURL != "ws://bridge:9000/ws" {
		t.Fatalf("bridge url: %s", cfg.BridgeURL)
	}
	if cfg.ResponseTimeout != 30*time.Second {
		t.Fatalf("response timeout: %v", cfg.ResponseTimeout)
	}
}
