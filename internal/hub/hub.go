// Package hub is the server-side room multiplexer. Sessions associate with
// a logical user through the setup handshake, join and leave chat or ticket
// rooms, and receive room-scoped broadcasts. When a NATS bridge is
// configured, broadcasts also fan out to the other hub instances.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/crewdesk/realtime/internal/logger"
	"github.com/crewdesk/realtime/internal/realtime"
)

// Room key namespaces keep chat rooms and ticket rooms from colliding.
const (
	chatRoomPrefix   = "chat:"
	ticketRoomPrefix = "ticket:"
)

// session is one connected client.
type session struct {
	conn    *websocket.Conn
	userID  string
	writeMu sync.Mutex
}

func (s *session) send(env realtime.Envelope) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(env)
}

// Hub tracks sessions and their room memberships.
type Hub struct {
	// rooms maps room key -> set of member sessions.
	rooms map[string]map[*session]bool

	// sessionRooms maps session -> set of joined room keys (for cleanup).
	sessionRooms map[*session]map[string]bool

	mu     sync.RWMutex
	bridge *Bridge
	logger *logger.Logger
}

// NewHub creates an empty hub. bridge may be nil for single-instance
// deployments.
func NewHub(bridge *Bridge, log *logger.Logger) *Hub {
	h := &Hub{
		rooms:        make(map[string]map[*session]bool),
		sessionRooms: make(map[*session]map[string]bool),
		bridge:       bridge,
		logger:       log,
	}
	if bridge != nil {
		bridge.deliver = h.deliverLocal
	}
	return h
}

func (h *Hub) register(sess *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessionRooms[sess] = make(map[string]bool)

	h.logger.WithComponent("hub").Debug("session registered",
		slog.String("user_id", sess.userID))
}

func (h *Hub) unregister(sess *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range h.sessionRooms[sess] {
		if members, ok := h.rooms[room]; ok {
			delete(members, sess)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	delete(h.sessionRooms, sess)

	h.logger.WithComponent("hub").Debug("session unregistered",
		slog.String("user_id", sess.userID))
}

func (h *Hub) join(sess *session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*session]bool)
	}
	h.rooms[room][sess] = true
	if h.sessionRooms[sess] != nil {
		h.sessionRooms[sess][room] = true
	}

	h.logger.WithComponent("hub").Debug("session joined room",
		slog.String("user_id", sess.userID),
		slog.String("room", room),
		slog.Int("members", len(h.rooms[room])))
}

func (h *Hub) leave(sess *session, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, sess)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if h.sessionRooms[sess] != nil {
		delete(h.sessionRooms[sess], room)
	}

	h.logger.WithComponent("hub").Debug("session left room",
		slog.String("user_id", sess.userID),
		slog.String("room", room))
}

// broadcast sends the envelope to every room member except the origin, and
// hands it to the bridge for the other instances. Send failures to
// individual members are logged and skipped; delivery is best-effort.
func (h *Hub) broadcast(room string, env realtime.Envelope, origin *session) {
	h.deliver(room, env, origin)

	if h.bridge != nil {
		h.bridge.Publish(room, env)
	}
}

func (h *Hub) deliver(room string, env realtime.Envelope, origin *session) {
	h.mu.RLock()
	members := make([]*session, 0, len(h.rooms[room]))
	for sess := range h.rooms[room] {
		if sess != origin {
			members = append(members, sess)
		}
	}
	h.mu.RUnlock()

	log := h.logger.WithComponent("hub")
	for _, sess := range members {
		if err := sess.send(env); err != nil {
			log.Warn("failed to deliver to session",
				slog.String("room", room),
				slog.String("user_id", sess.userID),
				slog.String("event", env.Event),
				slog.String("error", err.Error()))
		}
	}
}

// deliverLocal is the bridge callback for envelopes published by other
// instances. No origin exclusion: the origin session lives elsewhere.
func (h *Hub) deliverLocal(room string, env realtime.Envelope) {
	h.deliver(room, env, nil)
}

// RoomSize returns the number of local members in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func rawString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
