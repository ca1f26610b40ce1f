package realtime

import "encoding/json"

// Event channel names shared by the client and the hub. The wire format is
// a JSON envelope {event, data} per frame.
const (
	// Lifecycle.
	EventSetup     = "setup"     // client -> server, carries the session identity
	EventConnected = "connected" // server -> client, application-level handshake ack
	EventError     = "error"     // server -> client, logged and non-fatal

	// Room membership.
	EventJoinChat    = "join_chat"
	EventJoinTicket  = "join_ticket"
	EventLeaveTicket = "leave_ticket"

	// Chat.
	EventNewMessage      = "new_message"      // client -> server
	EventMessageReceived = "message_received" // server -> client
	EventTyping          = "typing"
	EventStopTyping      = "stop_typing"

	// Support tickets.
	EventSupportTyping      = "support_typing"
	EventNewSupportResponse = "new_support_response"
	EventNewSupportTicket   = "new_support_ticket"
)

// Envelope is the wire format for every frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Identity associates a connection with a logical user during the setup
// handshake.
type Identity struct {
	UserID    string `json:"userId"`
	CompanyID string `json:"companyId,omitempty"`
	Role      string `json:"role,omitempty"`
}

// SupportTyping is the payload for support_typing presence hints.
type SupportTyping struct {
	TicketID string `json:"ticketId"`
	UserName string `json:"userName"`
}
