package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/aframe-mcp/scenebridge/internal/logx"
	"github.com/aframe-mcp/scenebridge/internal/metrics"
)

var (
	// ErrNoScene is returned when a command arrives while no scene is registered.
	ErrNoScene = errors.New("no scene connected")
)

// sceneConn is the admitted scene connection. Writes are serialized through
// wmu because every control handler forwards commands to the same socket.
type sceneConn struct {
	conn    *websocket.Conn
	connID  string
	sceneID string
	wmu     sync.Mutex
}

func (s *sceneConn) write(ctx context.Context, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// pendingEntry tracks one forwarded command awaiting its reply. The channel
// is buffered so the resolver never blocks; an entry is removed from the
// table before it is resolved, which guarantees at most one send.
type pendingEntry struct {
	ch    chan []byte
	owner string
}

// Options configures a Broker.
type Options struct {
	// HandshakeTimeout bounds the wait for the first message on a new connection.
	HandshakeTimeout time.Duration
	// ResponseTimeout bounds the wait for a scene reply to a forwarded command.
	ResponseTimeout time.Duration
}

// Broker owns the scene slot and the pending-request table. It routes
// commands from any number of control clients to the single admitted scene
// and joins scene replies back to the callers by requestId.
type Broker struct {
	mu       sync.Mutex
	scene    *sceneConn
	pending  map[string]*pendingEntry
	controls int

	handshakeTimeout time.Duration
	responseTimeout  time.Duration
}

// NewBroker constructs a Broker. Zero option values fall back to the
// bridge defaults (5s handshake, 20s response).
func NewBroker(opts Options) *Broker {
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 5 * time.Second
	}
	if opts.ResponseTimeout == 0 {
		opts.ResponseTimeout = 20 * time.Second
	}
	return &Broker{
		pending:          map[string]*pendingEntry{},
		handshakeTimeout: opts.HandshakeTimeout,
		responseTimeout:  opts.ResponseTimeout,
	}
}

// admitScene installs conn as the sole scene if the slot is free. A second
// scene is rejected, not queued.
func (b *Broker) admitScene(conn *websocket.Conn, connID, sceneID string) (*sceneConn, bool) {
	if sceneID == "" {
		sceneID = "default"
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scene != nil {
		return nil, false
	}
	b.scene = &sceneConn{conn: conn, connID: connID, sceneID: sceneID}
	metrics.SetSceneConnected(true)
	return b.scene, true
}

// releaseScene clears the slot if it is still owned by connID and flushes
// every pending entry with a synthetic disconnect error. A late release from
// a superseded scene must not clear a newer scene's slot.
func (b *Broker) releaseScene(connID string) {
	b.mu.Lock()
	if b.scene == nil || b.scene.connID != connID {
		b.mu.Unlock()
		return
	}
	b.scene = nil
	metrics.SetSceneConnected(false)
	flushed := make(map[string]*pendingEntry, len(b.pending))
	for id, e := range b.pending {
		flushed[id] = e
		delete(b.pending, id)
	}
	metrics.SetPendingRequests(0)
	b.mu.Unlock()

	for id, e := range flushed {
		data, _ := json.Marshal(errorReply(id, "Scene disconnected"))
		e.ch <- data
	}
	if len(flushed) > 0 {
		logx.Log.Info().Int("count", len(flushed)).Msg("flushed pending requests")
	}
}

// currentScene returns the admitted scene connection, if any.
func (b *Broker) currentScene() *sceneConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scene
}

// forwardToScene sends raw command bytes to the admitted scene.
func (b *Broker) forwardToScene(ctx context.Context, raw []byte) error {
	sc := b.currentScene()
	if sc == nil {
		return ErrNoScene
	}
	return sc.write(ctx, raw)
}

// register creates a pending entry for requestID owned by the given control
// connection. A duplicate id overwrites the previous entry; uniqueness is a
// caller obligation.
func (b *Broker) register(requestID, owner string) chan []byte {
	ch := make(chan []byte, 1)
	b.mu.Lock()
	b.pending[requestID] = &pendingEntry{ch: ch, owner: owner}
	metrics.SetPendingRequests(len(b.pending))
	b.mu.Unlock()
	return ch
}

// unregister removes a pending entry without resolving it.
func (b *Broker) unregister(requestID string) {
	b.mu.Lock()
	delete(b.pending, requestID)
	metrics.SetPendingRequests(len(b.pending))
	b.mu.Unlock()
}

// resolve pops the entry for requestID and delivers payload to its waiter.
// It reports whether a matching entry existed; unmatched replies are dropped.
func (b *Broker) resolve(requestID string, payload []byte) bool {
	b.mu.Lock()
	e, ok := b.pending[requestID]
	if ok {
		delete(b.pending, requestID)
		metrics.SetPendingRequests(len(b.pending))
	}
	b.mu.Unlock()
	if !ok {
		return false
	}
	e.ch <- payload
	return true
}

// cancelOwned discards every pending entry owned by the given control
// connection without resolving it. Entries owned by other connections are
// untouched.
func (b *Broker) cancelOwned(owner string) {
	b.mu.Lock()
	for id, e := range b.pending {
		if e.owner == owner {
			delete(b.pending, id)
		}
	}
	metrics.SetPendingRequests(len(b.pending))
	b.mu.Unlock()
}

func (b *Broker) addControl() {
	b.mu.Lock()
	b.controls++
	metrics.SetControlClients(b.controls)
	b.mu.Unlock()
}

func (b *Broker) removeControl() {
	b.mu.Lock()
	b.controls--
	metrics.SetControlClients(b.controls)
	b.mu.Unlock()
}

// Status is a point-in-time snapshot of the broker for the /state endpoint.
type Status struct {
	SceneConnected bool   `json:"scene_connected"`
	SceneID        string `json:"scene_id,omitempty"`
	ControlClients int    `json:"control_clients"`
	Pending        int    `json:"pending"`
}

// Snapshot returns the current broker status.
func (b *Broker) Snapshot() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := Status{ControlClients: b.controls, Pending: len(b.pending)}
	if b.scene != nil {
		st.SceneConnected = true
		st.SceneID = b.scene.sceneID
	}
	return st
}
