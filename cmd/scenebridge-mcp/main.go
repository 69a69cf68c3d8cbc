package main

import (
	"context"
	"flag"
	"fmt"

	sdkserver "github.com/mark3labs/mcp-go/server"

	"github.com/aframe-mcp/scenebridge/internal/config"
	"github.com/aframe-mcp/scenebridge/internal/logx"
	"github.com/aframe-mcp/scenebridge/internal/sceneclient"
	"github.com/aframe-mcp/scenebridge/internal/scenetools"
)

var (
	version   = "dev"
	buildSHA  = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	var cfg config.MCPConfig
	cfg.SetDefaults()
	cfg.ApplyEnv()
	cfg.BindFlagsFromCurrent()
	flag.Parse()
	if *showVersion {
		fmt.Printf("scenebridge-mcp version=%s sha=%s date=%s\n", version, buildSHA, buildDate)
		return
	}
	logx.Configure(cfg.LogLevel)

	client := sceneclient.New(cfg)

	// Eager probe so a misconfigured bridge URL is visible at startup. The
	// bridge being down is not fatal; commands fail per call until it is up.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout+cfg.ResponseTimeout)
	if err := client.Ping(ctx); err != nil {
		logx.Log.Warn().Err(err).Str("bridge_url", cfg.BridgeURL).Msg("bridge not reachable on startup")
		logx.Log.Warn().Msg("commands will fail until a scene connects to the bridge")
	} else {
		logx.Log.Info().Str("bridge_url", cfg.BridgeURL).Msg("connected to A-Frame bridge")
	}
	cancel()

	logx.Log.Info().Msg("starting A-Frame MCP server")
	srv := scenetools.NewServer(client, version)
	if err := sdkserver.ServeStdio(srv); err != nil {
		logx.Log.Fatal().Err(err).Msg("mcp server error")
	}
}
