package config

import (
	"flag"
	"strconv"
	"time"
)

// MCPConfig holds configuration for the scenebridge MCP tool server.
type MCPConfig struct {
	BridgeURL       string        `yaml:"bridge_url"`
	ClientName      string        `yaml:"client_name"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`
	LogLevel        string        `yaml:"log_level"`
}

// SetDefaults initializes c with built-in defaults.
func (c *MCPConfig) SetDefaults() {
	if c.BridgeURL == "" {
		c.BridgeURL = "ws://localhost:8765/ws"
	}
	if c.ClientName == "" {
		c.ClientName = "aframe-mcp"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = 15 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// ApplyEnv overlays environment variables onto the current config values.
func (c *MCPConfig) ApplyEnv() {
	if v := getEnv("AFRAME_LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("AFRAME_BRIDGE_URL", ""); v != "" {
		c.BridgeURL = v
	}
	if v := getEnv("AFRAME_CONNECT_TIMEOUT", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ConnectTimeout = time.Duration(f * float64(time.Second))
		}
	}
	if v := getEnv("AFRAME_RESPONSE_TIMEOUT", ""); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ResponseTimeout = time.Duration(f * float64(time.Second))
		}
	}
}

// BindFlagsFromCurrent binds command line flags using the current config values as defaults.
func (c *MCPConfig) BindFlagsFromCurrent() {
	flag.StringVar(&c.BridgeURL, "bridge-url", c.BridgeURL, "websocket URL of the scenebridge server")
	flag.StringVar(&c.ClientName, "client-name", c.ClientName, "client name reported in the bridge handshake")
	flag.DurationVar(&c.ConnectTimeout, "connect-timeout", c.ConnectTimeout, "maximum wait to dial the bridge")
	flag.DurationVar(&c.ResponseTimeout, "response-timeout", c.ResponseTimeout, "maximum wait for a command reply")
	flag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (all, debug, info, warn, error, fatal, none)")
}
