// Package realtime implements the client side of the delivery subsystem:
// the websocket connection lifecycle, a single-handler-per-channel event
// router, and room membership emits.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crewdesk/realtime/internal/logger"
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Options configures a connection manager.
type Options struct {
	// URL is the hub websocket endpoint, e.g. ws://host:8080/ws.
	URL string

	// DialAttempts bounds the reconnect loop. Defaults to 5.
	DialAttempts int

	// DialDelay is the fixed spacing between attempts. Defaults to 1s.
	DialDelay time.Duration
}

func (o *Options) defaults() {
	if o.DialAttempts <= 0 {
		o.DialAttempts = 5
	}
	if o.DialDelay <= 0 {
		o.DialDelay = time.Second
	}
}

// Manager owns one websocket session per process. Construct it once and
// pass it by reference to consumers; there is no package-level singleton.
//
// Connection establishment is two-phase: a transport-level dial followed by
// an application-level setup handshake. The manager only reports Connected
// once the hub acks the setup with a connected frame.
type Manager struct {
	opts   Options
	router *Router
	logger *logger.Logger

	mu      sync.Mutex
	writeMu sync.Mutex
	state   State
	conn    *websocket.Conn

	// dialGen is bumped by every Connect. A dial only installs its conn if
	// the generation is still current, so a Disconnect issued while the dial
	// is in flight invalidates the attempt instead of leaking a session.
	dialGen uint64
}

// NewManager creates a disconnected manager wired to the given router.
func NewManager(opts Options, router *Router, log *logger.Logger) *Manager {
	opts.defaults()
	return &Manager{
		opts:   opts,
		router: router,
		logger: log,
		state:  StateDisconnected,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Router returns the event router fed by this connection's read loop.
func (m *Manager) Router() *Router {
	return m.router
}

// Connect dials the hub and performs the setup handshake, retrying the dial
// up to the configured attempt count with fixed spacing. Calling Connect
// while a session is already Connecting or Connected is a no-op, so a
// double connect never produces a duplicate session.
//
// Once the attempts are exhausted the manager stays Disconnected until the
// caller connects again; there is no background reconnect.
func (m *Manager) Connect(ctx context.Context, identity Identity) error {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		m.logger.WithComponent("connection").Debug("connect ignored, session already active",
			slog.String("state", m.state.String()))
		return nil
	}
	m.state = StateConnecting
	m.dialGen++
	gen := m.dialGen
	m.mu.Unlock()

	log := m.logger.WithComponent("connection")

	var conn *websocket.Conn
	var err error
	for attempt := 1; attempt <= m.opts.DialAttempts; attempt++ {
		conn, _, err = websocket.DefaultDialer.DialContext(ctx, m.opts.URL, nil)
		if err == nil {
			break
		}
		log.Warn("dial failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", m.opts.DialAttempts),
			slog.String("error", err.Error()))

		if attempt == m.opts.DialAttempts {
			break
		}
		select {
		case <-ctx.Done():
			m.abortDial(gen)
			return ctx.Err()
		case <-time.After(m.opts.DialDelay):
		}
	}
	if err != nil {
		m.abortDial(gen)
		return fmt.Errorf("failed to dial %s after %d attempts: %w", m.opts.URL, m.opts.DialAttempts, err)
	}

	m.mu.Lock()
	if m.dialGen != gen || m.state != StateConnecting {
		m.mu.Unlock()
		conn.Close()
		log.Debug("dial superseded by disconnect, dropping transport")
		return nil
	}
	m.conn = conn
	m.mu.Unlock()

	// Application-level handshake: associate the session with the user.
	// The hub acks with a connected frame, observed by the read loop.
	if err := m.write(EventSetup, identity); err != nil {
		m.setDisconnected(conn)
		return fmt.Errorf("setup handshake failed: %w", err)
	}

	go m.readLoop(conn)

	log.Info("transport open, awaiting handshake ack",
		slog.String("user_id", identity.UserID))
	return nil
}

// Disconnect tears the session down unconditionally. In-flight emissions
// are lost; there is no outbox or replay. A no-op when already
// Disconnected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state == StateDisconnected {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	m.conn = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	m.logger.WithComponent("connection").Info("disconnected")
}

// Emit sends an event to the hub. Emissions while the session is not
// Connected are dropped silently; callers needing delivery guarantees must
// sequence them behind the handshake.
func (m *Manager) Emit(event string, data any) error {
	m.mu.Lock()
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected {
		m.logger.WithComponent("connection").Debug("emit dropped, not connected",
			slog.String("event", event))
		return nil
	}
	return m.write(event, data)
}

func (m *Manager) write(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("no active transport")
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(Envelope{Event: event, Data: payload})
}

// readLoop decodes envelopes until the transport fails. Transport errors
// are logged and collapse the session to Disconnected; they never reach
// event handlers.
func (m *Manager) readLoop(conn *websocket.Conn) {
	log := m.logger.WithComponent("connection")

	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			m.mu.Lock()
			stale := m.conn != conn
			m.mu.Unlock()
			if !stale {
				log.Warn("transport closed", slog.String("error", err.Error()))
				m.setDisconnected(conn)
			}
			return
		}

		switch env.Event {
		case EventConnected:
			m.mu.Lock()
			if m.conn == conn && m.state == StateConnecting {
				m.state = StateConnected
			}
			m.mu.Unlock()
			log.Info("handshake acknowledged")
		case EventError:
			log.Warn("server reported error", slog.String("detail", string(env.Data)))
		}

		m.router.Dispatch(env.Event, env.Data)
	}
}

// abortDial resets the state after a failed dial loop, but only if the
// attempt is still the current one; an intervening disconnect or reconnect
// owns the state by then.
func (m *Manager) abortDial(gen uint64) {
	m.mu.Lock()
	if m.dialGen == gen && m.state == StateConnecting {
		m.state = StateDisconnected
	}
	m.mu.Unlock()
}

// setDisconnected collapses the session owning conn. Stale conns are closed
// without touching the state of whatever session replaced them.
func (m *Manager) setDisconnected(conn *websocket.Conn) {
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
		m.state = StateDisconnected
	}
	m.mu.Unlock()

	conn.Close()
}
