package realtime

// Rooms emits room membership intents and presence hints over the active
// connection. No local membership state is tracked: correctness depends on
// the hub honoring join and leave calls, and emitting into a room before
// joining it is a caller error with no local guard.
type Rooms struct {
	conn *Manager
}

// NewRooms wraps a connection manager with room membership emits.
func NewRooms(conn *Manager) *Rooms {
	return &Rooms{conn: conn}
}

// JoinChat subscribes the session to a direct chat room.
func (r *Rooms) JoinChat(room string) error {
	return r.conn.Emit(EventJoinChat, room)
}

// JoinTicket subscribes the session to a support ticket room.
func (r *Rooms) JoinTicket(ticketID string) error {
	return r.conn.Emit(EventJoinTicket, ticketID)
}

// LeaveTicket unsubscribes the session from a support ticket room.
func (r *Rooms) LeaveTicket(ticketID string) error {
	return r.conn.Emit(EventLeaveTicket, ticketID)
}

// Typing broadcasts a transient typing hint to a chat room.
func (r *Rooms) Typing(room string) error {
	return r.conn.Emit(EventTyping, room)
}

// StopTyping broadcasts the end of a typing hint to a chat room.
func (r *Rooms) StopTyping(room string) error {
	return r.conn.Emit(EventStopTyping, room)
}

// SupportTyping broadcasts a typing hint scoped to a support ticket.
func (r *Rooms) SupportTyping(ticketID, userName string) error {
	return r.conn.Emit(EventSupportTyping, SupportTyping{
		TicketID: ticketID,
		UserName: userName,
	})
}
