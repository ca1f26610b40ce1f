package push

// Payload is the notification content handed to the gateway.
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// TokenInfo represents a device push token stored in Firestore.
type TokenInfo struct {
	Token         string `firestore:"token"`
	DeviceID      string `firestore:"deviceId"`
	LastUpdatedAt string `firestore:"lastUpdatedAt"`
}

// DispatchResult reports the outcome of a dispatch as a value. Gateway
// failures land in Error instead of an error return: push delivery is
// best-effort and must never abort the business operation that triggered
// it.
type DispatchResult struct {
	// MessageID is the gateway's identifier for a single-token send.
	MessageID string `json:"messageId,omitempty"`

	// SuccessCount and FailureCount report a multicast outcome. A batch
	// with partial failures is a reported result, not an error.
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`

	// Error carries a gateway or transport failure, captured at this
	// boundary.
	Error string `json:"error,omitempty"`
}
