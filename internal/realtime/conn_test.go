package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/crewdesk/realtime/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError})
}

// testHub is a minimal server that performs the setup/connected handshake
// and records frames it receives afterwards.
type testHub struct {
	server       *httptest.Server
	setups       atomic.Int64
	frames       chan Envelope
	sendAfter    []Envelope
	lastSetups   chan Identity
	upgradeDelay time.Duration
}

func newTestHub(t *testing.T, configure ...func(*testHub)) *testHub {
	t.Helper()

	h := &testHub{
		frames:     make(chan Envelope, 16),
		lastSetups: make(chan Identity, 16),
	}
	for _, fn := range configure {
		fn(h)
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	h.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.upgradeDelay > 0 {
			time.Sleep(h.upgradeDelay)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var env Envelope
		if err := conn.ReadJSON(&env); err != nil || env.Event != EventSetup {
			return
		}
		h.setups.Add(1)

		var identity Identity
		json.Unmarshal(env.Data, &identity)
		h.lastSetups <- identity

		if err := conn.WriteJSON(Envelope{Event: EventConnected}); err != nil {
			return
		}
		for _, out := range h.sendAfter {
			if err := conn.WriteJSON(out); err != nil {
				return
			}
		}

		for {
			var in Envelope
			if err := conn.ReadJSON(&in); err != nil {
				return
			}
			h.frames <- in
		}
	}))
	t.Cleanup(h.server.Close)

	return h
}

func (h *testHub) url() string {
	return "ws" + strings.TrimPrefix(h.server.URL, "http")
}

func waitForState(t *testing.T, m *Manager, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("state %s never reached, still %s", want, m.State())
}

func TestConnectHandshake(t *testing.T) {
	hub := newTestHub(t)

	m := NewManager(Options{URL: hub.url()}, NewRouter(), testLogger())
	defer m.Disconnect()

	if err := m.Connect(context.Background(), Identity{UserID: "user-1"}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	waitForState(t, m, StateConnected)

	select {
	case identity := <-hub.lastSetups:
		if identity.UserID != "user-1" {
			t.Errorf("setup carried user %q, want user-1", identity.UserID)
		}
	case <-time.After(time.Second):
		t.Fatal("setup frame never arrived")
	}
}

func TestConnectTwiceKeepsOneSession(t *testing.T) {
	hub := newTestHub(t)

	m := NewManager(Options{URL: hub.url()}, NewRouter(), testLogger())
	defer m.Disconnect()

	if err := m.Connect(context.Background(), Identity{UserID: "user-1"}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	waitForState(t, m, StateConnected)

	if err := m.Connect(context.Background(), Identity{UserID: "user-1"}); err != nil {
		t.Fatalf("second connect errored: %v", err)
	}

	// Give a duplicate handshake time to happen if one were coming.
	time.Sleep(100 * time.Millisecond)
	if got := hub.setups.Load(); got != 1 {
		t.Errorf("server saw %d setup handshakes, want 1", got)
	}
}

func TestConnectExhaustsBoundedRetries(t *testing.T) {
	m := NewManager(Options{
		URL:          "ws://127.0.0.1:1/ws", // nothing listens here
		DialAttempts: 2,
		DialDelay:    10 * time.Millisecond,
	}, NewRouter(), testLogger())

	err := m.Connect(context.Background(), Identity{UserID: "user-1"})
	if err == nil {
		t.Fatal("expected connect to fail")
	}
	if m.State() != StateDisconnected {
		t.Errorf("state after exhausted retries = %s, want disconnected", m.State())
	}

	// No background reconnect: the state stays down until an explicit call.
	time.Sleep(50 * time.Millisecond)
	if m.State() != StateDisconnected {
		t.Errorf("state drifted to %s without an explicit connect", m.State())
	}
}

func TestEmitDroppedWhileDisconnected(t *testing.T) {
	m := NewManager(Options{URL: "ws://127.0.0.1:1/ws"}, NewRouter(), testLogger())

	if err := m.Emit(EventTyping, "room-1"); err != nil {
		t.Errorf("emit while disconnected should be a silent drop, got %v", err)
	}
}

func TestEmitReachesServer(t *testing.T) {
	hub := newTestHub(t)

	m := NewManager(Options{URL: hub.url()}, NewRouter(), testLogger())
	defer m.Disconnect()

	if err := m.Connect(context.Background(), Identity{UserID: "user-1"}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	waitForState(t, m, StateConnected)

	if err := m.Emit(EventJoinChat, "room-42"); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	select {
	case frame := <-hub.frames:
		if frame.Event != EventJoinChat {
			t.Errorf("server received event %q, want join_chat", frame.Event)
		}
		var room string
		json.Unmarshal(frame.Data, &room)
		if room != "room-42" {
			t.Errorf("server received room %q, want room-42", room)
		}
	case <-time.After(time.Second):
		t.Fatal("frame never arrived")
	}
}

func TestInboundEventsReachRouter(t *testing.T) {
	payload, _ := json.Marshal(map[string]string{"id": "m1", "text": "hello"})
	hub := newTestHub(t, func(h *testHub) {
		h.sendAfter = []Envelope{{Event: EventMessageReceived, Data: payload}}
	})

	router := NewRouter()
	received := make(chan json.RawMessage, 1)
	router.On(EventMessageReceived, func(data json.RawMessage) {
		received <- data
	})

	m := NewManager(Options{URL: hub.url()}, router, testLogger())
	defer m.Disconnect()

	if err := m.Connect(context.Background(), Identity{UserID: "user-1"}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	select {
	case data := <-received:
		var msg map[string]string
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if msg["text"] != "hello" {
			t.Errorf("payload text = %q, want hello", msg["text"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never invoked")
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	hub := newTestHub(t)

	m := NewManager(Options{URL: hub.url()}, NewRouter(), testLogger())
	if err := m.Connect(context.Background(), Identity{UserID: "user-1"}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	waitForState(t, m, StateConnected)

	m.Disconnect()
	if m.State() != StateDisconnected {
		t.Fatalf("state after disconnect = %s", m.State())
	}

	// Second disconnect is a no-op, not a panic.
	m.Disconnect()
	if m.State() != StateDisconnected {
		t.Fatalf("state after double disconnect = %s", m.State())
	}
}

func TestDisconnectDuringDialDropsTransport(t *testing.T) {
	hub := newTestHub(t, func(h *testHub) {
		h.upgradeDelay = 300 * time.Millisecond
	})

	m := NewManager(Options{URL: hub.url()}, NewRouter(), testLogger())

	done := make(chan error, 1)
	go func() {
		done <- m.Connect(context.Background(), Identity{UserID: "user-1"})
	}()
	waitForState(t, m, StateConnecting)

	m.Disconnect()
	if err := <-done; err != nil {
		t.Fatalf("connect returned error: %v", err)
	}

	// The delayed dial completes after the teardown; it must not hand the
	// manager a session the caller can no longer close.
	time.Sleep(500 * time.Millisecond)
	if got := hub.setups.Load(); got != 0 {
		t.Errorf("server saw %d setup handshakes after disconnect, want 0", got)
	}
	if m.State() != StateDisconnected {
		t.Errorf("state after disconnect = %s, want disconnected", m.State())
	}

	// A fresh connect still works and yields exactly one session.
	if err := m.Connect(context.Background(), Identity{UserID: "user-1"}); err != nil {
		t.Fatalf("reconnect failed: %v", err)
	}
	defer m.Disconnect()
	waitForState(t, m, StateConnected)
	if got := hub.setups.Load(); got != 1 {
		t.Errorf("server saw %d setup handshakes after reconnect, want 1", got)
	}
}

func TestRoomsEmitMembership(t *testing.T) {
	hub := newTestHub(t)

	m := NewManager(Options{URL: hub.url()}, NewRouter(), testLogger())
	defer m.Disconnect()

	if err := m.Connect(context.Background(), Identity{UserID: "user-1"}); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	waitForState(t, m, StateConnected)

	rooms := NewRooms(m)
	if err := rooms.JoinTicket("TIC-7"); err != nil {
		t.Fatalf("join ticket failed: %v", err)
	}
	if err := rooms.SupportTyping("TIC-7", "Ana"); err != nil {
		t.Fatalf("support typing failed: %v", err)
	}

	events := []string{EventJoinTicket, EventSupportTyping}
	for _, want := range events {
		select {
		case frame := <-hub.frames:
			if frame.Event != want {
				t.Errorf("received %q, want %q", frame.Event, want)
			}
			if want == EventSupportTyping {
				var typing SupportTyping
				json.Unmarshal(frame.Data, &typing)
				if typing.TicketID != "TIC-7" || typing.UserName != "Ana" {
					t.Errorf("unexpected support typing payload: %+v", typing)
				}
			}
		case <-time.After(time.Second):
			t.Fatalf("frame %q never arrived", want)
		}
	}
}
