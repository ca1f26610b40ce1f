package hub

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/crewdesk/realtime/internal/chat"
	"github.com/crewdesk/realtime/internal/logger"
	"github.com/crewdesk/realtime/internal/realtime"
)

// NewMessagePayload is what a client sends on the new_message channel. The
// room names the chat thread the message should be broadcast into.
type NewMessagePayload struct {
	Room       string `json:"room"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
	TaskID     string `json:"taskId,omitempty"`
}

// Handler upgrades websocket sessions and drives their event loops.
type Handler struct {
	hub      *Hub
	cache    *chat.Cache
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewHandler creates a websocket handler backed by the hub and the
// server-side message log.
func NewHandler(h *Hub, cache *chat.Cache, log *logger.Logger) *Handler {
	return &Handler{
		hub:   h,
		cache: cache,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// ServeWS handles GET /ws. The first frame from the client must be the
// setup envelope; anything else closes the session. After the connected
// ack, the session may join rooms and emit room-scoped events.
func (h *Handler) ServeWS(c *gin.Context) {
	log := h.logger.WithComponent("hub")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("upgrade failed", slog.String("error", err.Error()))
		return
	}

	var env realtime.Envelope
	if err := conn.ReadJSON(&env); err != nil || env.Event != realtime.EventSetup {
		log.Warn("session rejected, setup handshake missing")
		conn.WriteJSON(realtime.Envelope{
			Event: realtime.EventError,
			Data:  rawString("setup required"),
		})
		conn.Close()
		return
	}

	var identity realtime.Identity
	if err := json.Unmarshal(env.Data, &identity); err != nil || identity.UserID == "" {
		log.Warn("session rejected, invalid identity")
		conn.WriteJSON(realtime.Envelope{
			Event: realtime.EventError,
			Data:  rawString("invalid identity"),
		})
		conn.Close()
		return
	}

	sess := &session{conn: conn, userID: identity.UserID}
	h.hub.register(sess)
	defer func() {
		h.hub.unregister(sess)
		conn.Close()
	}()

	if err := sess.send(realtime.Envelope{Event: realtime.EventConnected}); err != nil {
		log.Warn("failed to ack handshake",
			slog.String("user_id", sess.userID),
			slog.String("error", err.Error()))
		return
	}

	log.Info("session established", slog.String("user_id", sess.userID))
	h.serve(sess)
}

func (h *Handler) serve(sess *session) {
	log := h.logger.WithComponent("hub")

	for {
		var env realtime.Envelope
		if err := sess.conn.ReadJSON(&env); err != nil {
			log.Debug("session closed",
				slog.String("user_id", sess.userID),
				slog.String("error", err.Error()))
			return
		}

		switch env.Event {
		case realtime.EventJoinChat:
			if room, ok := decodeString(env.Data); ok {
				h.hub.join(sess, chatRoomPrefix+room)
			}

		case realtime.EventJoinTicket:
			if ticketID, ok := decodeString(env.Data); ok {
				h.hub.join(sess, ticketRoomPrefix+ticketID)
			}

		case realtime.EventLeaveTicket:
			if ticketID, ok := decodeString(env.Data); ok {
				h.hub.leave(sess, ticketRoomPrefix+ticketID)
			}

		case realtime.EventNewMessage:
			h.handleNewMessage(sess, env.Data)

		case realtime.EventTyping, realtime.EventStopTyping:
			if room, ok := decodeString(env.Data); ok {
				h.hub.broadcast(chatRoomPrefix+room, env, sess)
			}

		case realtime.EventSupportTyping:
			var typing realtime.SupportTyping
			if err := json.Unmarshal(env.Data, &typing); err == nil && typing.TicketID != "" {
				h.hub.broadcast(ticketRoomPrefix+typing.TicketID, env, sess)
			}

		case realtime.EventNewSupportResponse, realtime.EventNewSupportTicket:
			h.handleSupportEvent(sess, env)

		default:
			log.Debug("ignoring unknown event",
				slog.String("user_id", sess.userID),
				slog.String("event", env.Event))
		}
	}
}

// handleNewMessage appends the message to the canonical log, then
// broadcasts it to the chat room as message_received. The sender is
// excluded: it already appended the message locally.
func (h *Handler) handleNewMessage(sess *session, data json.RawMessage) {
	log := h.logger.WithComponent("hub")

	var payload NewMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" {
		log.Warn("dropping malformed message",
			slog.String("user_id", sess.userID))
		return
	}

	msg := h.cache.SendMessage(payload.SenderID, payload.ReceiverID, payload.Text, payload.TaskID)

	out, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to marshal message", slog.String("error", err.Error()))
		return
	}

	h.hub.broadcast(chatRoomPrefix+payload.Room, realtime.Envelope{
		Event: realtime.EventMessageReceived,
		Data:  out,
	}, sess)
}

// handleSupportEvent relays a support event into its ticket room. Support
// consoles are sessions like any other; the ticket id rides inside the
// payload.
func (h *Handler) handleSupportEvent(sess *session, env realtime.Envelope) {
	var payload struct {
		TicketID string `json:"ticketId"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil || payload.TicketID == "" {
		h.logger.WithComponent("hub").Warn("dropping support event without ticket id",
			slog.String("user_id", sess.userID),
			slog.String("event", env.Event))
		return
	}
	h.hub.broadcast(ticketRoomPrefix+payload.TicketID, env, sess)
}

func decodeString(data json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}
