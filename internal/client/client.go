// Package client assembles the realtime delivery subsystem on the
// application side: one connection per process, room membership, and the
// persisted local stores that incoming events mutate.
package client

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/crewdesk/realtime/internal/chat"
	"github.com/crewdesk/realtime/internal/logger"
	"github.com/crewdesk/realtime/internal/notify"
	"github.com/crewdesk/realtime/internal/realtime"
	"github.com/crewdesk/realtime/internal/storage"
	"github.com/crewdesk/realtime/internal/ticket"
)

// Client is the app-facing entry point. Construct it once and pass it by
// reference to consumers; there is no package-level singleton.
type Client struct {
	Conn          *realtime.Manager
	Rooms         *realtime.Rooms
	Messages      *chat.Cache
	Notifications *notify.Store
	Tickets       *ticket.Store

	logger *logger.Logger
}

// New wires the connection, router, and stores together. Default handlers
// route inbound events into the local stores; callers can replace any of
// them through Conn.Router(), which detaches the default for that channel.
func New(opts realtime.Options, blobs *storage.BlobStore, log *logger.Logger) *Client {
	router := realtime.NewRouter()

	c := &Client{
		Conn:          realtime.NewManager(opts, router, log),
		Messages:      chat.NewCache(blobs, log),
		Notifications: notify.NewStore(blobs, log),
		Tickets:       ticket.NewStore(blobs, log),
		logger:        log,
	}
	c.Rooms = realtime.NewRooms(c.Conn)

	router.On(realtime.EventMessageReceived, c.onMessageReceived)
	router.On(realtime.EventNewSupportResponse, c.onSupportResponse)

	return c
}

// Connect opens the session for the given identity. Idempotent while a
// session is active.
func (c *Client) Connect(ctx context.Context, identity realtime.Identity) error {
	return c.Conn.Connect(ctx, identity)
}

// Disconnect tears the session down. Local stores keep their state; only
// in-flight emissions are lost.
func (c *Client) Disconnect() {
	c.Conn.Disconnect()
}

// onMessageReceived appends an inbound message to the conversation cache
// and records an unread notification for the recipient.
func (c *Client) onMessageReceived(data json.RawMessage) {
	var msg chat.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.WithComponent("client").Warn("dropping malformed inbound message",
			slog.String("error", err.Error()))
		return
	}

	c.Messages.Append(msg)
	c.Notifications.Add(notify.Notification{
		Title:       "New message",
		Description: msg.Text,
		Category:    notify.CategoryMessage,
		RecipientID: msg.ReceiverID,
	})
}

// onSupportResponse records an unread notification for a support reply.
// The ticket itself is refreshed from the server by the UI, not patched
// locally from the event payload.
func (c *Client) onSupportResponse(data json.RawMessage) {
	var payload struct {
		TicketID    string `json:"ticketId"`
		Text        string `json:"text"`
		RecipientID string `json:"recipientId"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.WithComponent("client").Warn("dropping malformed support response",
			slog.String("error", err.Error()))
		return
	}

	c.Notifications.Add(notify.Notification{
		Title:       "Support reply",
		Description: payload.Text,
		Category:    notify.CategoryComment,
		RecipientID: payload.RecipientID,
	})
}
