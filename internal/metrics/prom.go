package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:        "scenebridge_build_info",
			Help:        "Build information",
			ConstLabels: prometheus.Labels{"component": "bridge"},
		},
		[]string{"date", "sha", "version"},
	)

	connections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenebridge_connections_total",
			Help: "Accepted connections by declared role",
		},
		[]string{"role"},
	)

	handshakeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenebridge_handshake_failures_total",
			Help: "Connections closed during handshake",
		},
		[]string{"reason"},
	)

	sceneRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scenebridge_scene_rejected_total",
			Help: "Scene handshakes rejected because a scene was already connected",
		},
	)

	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenebridge_commands_total",
			Help: "Relayed commands by outcome",
		},
		[]string{"outcome"},
	)

	commandDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scenebridge_command_duration_seconds",
			Help:    "Time from command forward to scene reply",
			Buckets: prometheus.DefBuckets,
		},
	)

	sceneConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scenebridge_scene_connected",
			Help: "Whether a scene is currently connected",
		},
	)

	controlClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scenebridge_control_clients",
			Help: "Connected MCP control clients",
		},
	)

	pendingRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scenebridge_pending_requests",
			Help: "Commands forwarded to the scene and awaiting a reply",
		},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, connections, handshakeFailures, sceneRejected, commands, commandDuration, sceneConnected, controlClients, pendingRequests)
}

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, sha, date string) {
	buildInfo.WithLabelValues(date, sha, version).Set(1)
}

// RecordConnection increments the accepted connection counter for a role.
func RecordConnection(role string) {
	connections.WithLabelValues(role).Inc()
}

// RecordHandshakeFailure increments the handshake failure counter.
func RecordHandshakeFailure(reason string) {
	handshakeFailures.WithLabelValues(reason).Inc()
}

// RecordSceneRejected increments the scene admission rejection counter.
func RecordSceneRejected() {
	sceneRejected.Inc()
}

// RecordCommand increments the command counter for an outcome.
func RecordCommand(outcome string) {
	commands.WithLabelValues(outcome).Inc()
}

// ObserveCommandDuration records how long a command waited for its reply.
func ObserveCommandDuration(d time.Duration) {
	commandDuration.Observe(d.Seconds())
}

// SetSceneConnected updates the scene presence gauge.
func SetSceneConnected(connected bool) {
	if connected {
		sceneConnected.Set(1)
	} else {
		sceneConnected.Set(0)
	}
}

// SetControlClients updates the connected control client gauge.
func SetControlClients(n int) {
	controlClients.Set(float64(n))
}

// SetPendingRequests updates the pending-table depth gauge.
func SetPendingRequests(n int) {
	pendingRequests.Set(float64(n))
}
