package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aframe-mcp/scenebridge/internal/bridge"
	"github.com/aframe-mcp/scenebridge/internal/config"
)

// New constructs the HTTP handler for the bridge.
func New(broker *bridge.Broker, cfg config.BridgeConfig) http.Handler {
	r := chi.NewRouter()
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}))
	}

	r.Handle(cfg.WSPath, broker.WSHandler(cfg.AllowedOrigins))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/state", StateHandler(broker))
	r.Handle("/metrics", promhttp.Handler())

	return r
}
