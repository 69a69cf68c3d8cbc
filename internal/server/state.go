package server

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/aframe-mcp/scenebridge/internal/bridge"
	"github.com/aframe-mcp/scenebridge/internal/serverstate"
)

var startedAt = time.Now()

// StateView is the JSON document served on /state.
type StateView struct {
	State         string        `json:"state"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	Bridge        bridge.Status `json:"bridge"`
	Process       *ProcessStats `json:"process,omitempty"`
}

// ProcessStats reports resource usage of the bridge process.
type ProcessStats struct {
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
}

// StateHandler serves a point-in-time snapshot of the bridge.
func StateHandler(broker *bridge.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := StateView{
			State:         serverstate.GetState(),
			UptimeSeconds: int64(time.Since(startedAt).Seconds()),
			Bridge:        broker.Snapshot(),
			Process:       processStats(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	}
}

func processStats() *ProcessStats {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil
	}
	stats := &ProcessStats{}
	if mem, err := p.MemoryInfo(); err == nil && mem != nil {
		stats.RSSBytes = mem.RSS
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	return stats
}
