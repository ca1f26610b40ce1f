package chat

// Message is a single chat message. Messages are immutable once created;
// the log is append-only, with insertion order preserved.
type Message struct {
	ID         string `json:"id"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
	Timestamp  string `json:"timestamp"` // RFC3339
	TaskID     string `json:"taskId,omitempty"`
}

// Thread pairs a chat partner with the most recently appended message
// exchanged with them.
type Thread struct {
	PartnerID string  `json:"partnerId"`
	Message   Message `json:"message"`
}
