// Package chat holds the client's conversation cache: a flat append-only
// message log plus views derived from it on read (per-partner threads,
// latest message per partner).
package chat

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crewdesk/realtime/internal/logger"
	"github.com/crewdesk/realtime/internal/storage"
)

// Cache is the conversation cache. Mutations replace the backing slice
// wholesale (copy-on-write), so readers holding a snapshot never observe a
// partial update.
type Cache struct {
	mu       sync.RWMutex
	messages []Message
	store    *storage.BlobStore
	logger   *logger.Logger
}

// NewCache creates a cache, loading any persisted message log from the
// store. A nil store disables persistence.
func NewCache(store *storage.BlobStore, log *logger.Logger) *Cache {
	c := &Cache{
		store:  store,
		logger: log,
	}

	if store != nil {
		if err := store.Load(storage.NamespaceMessages, &c.messages); err != nil {
			log.WithComponent("chat-cache").Error("failed to load message log",
				slog.String("error", err.Error()))
		}
	}

	return c
}

// SendMessage appends a new message to the log and returns it.
func (c *Cache) SendMessage(senderID, receiverID, text, taskID string) Message {
	msg := Message{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		Timestamp:  time.Now().Format(time.RFC3339),
		TaskID:     taskID,
	}
	c.Append(msg)
	return msg
}

// Append adds an already-constructed message to the end of the log.
// Used for messages arriving over the connection.
func (c *Cache) Append(msg Message) {
	c.mu.Lock()
	next := make([]Message, len(c.messages), len(c.messages)+1)
	copy(next, c.messages)
	c.messages = append(next, msg)
	snapshot := c.messages
	c.mu.Unlock()
	c.persist(snapshot)
}

// Messages returns the current log snapshot. Callers must not mutate it.
func (c *Cache) Messages() []Message {
	return c.snapshot()
}

func (c *Cache) snapshot() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.messages
}

// ChatPartner returns the ordered sub-sequence of messages exchanged
// between the two users, in either direction. Symmetric in its arguments.
func (c *Cache) ChatPartner(userA, userB string) []Message {
	snapshot := c.snapshot()

	var thread []Message
	for _, m := range snapshot {
		if (m.SenderID == userA && m.ReceiverID == userB) ||
			(m.SenderID == userB && m.ReceiverID == userA) {
			thread = append(thread, m)
		}
	}
	return thread
}

// LatestMessagesForUser returns one thread per distinct chat partner of the
// user, each carrying the most recently appended message with that partner.
// Selection is by insertion index, not by timestamp value: a late-arriving
// message with an old timestamp still wins. Threads are ordered most
// recently active first.
func (c *Cache) LatestMessagesForUser(userID string) []Thread {
	snapshot := c.snapshot()

	latest := make(map[string]Message)
	order := make(map[string]int)
	for i, m := range snapshot {
		var partner string
		switch {
		case m.SenderID == userID:
			partner = m.ReceiverID
		case m.ReceiverID == userID:
			partner = m.SenderID
		default:
			continue
		}
		latest[partner] = m
		order[partner] = i
	}

	threads := make([]Thread, 0, len(latest))
	for partner, msg := range latest {
		threads = append(threads, Thread{PartnerID: partner, Message: msg})
	}

	// Most recently active partner first.
	for i := 1; i < len(threads); i++ {
		for j := i; j > 0 && order[threads[j].PartnerID] > order[threads[j-1].PartnerID]; j-- {
			threads[j], threads[j-1] = threads[j-1], threads[j]
		}
	}

	return threads
}

func (c *Cache) persist(snapshot []Message) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(storage.NamespaceMessages, snapshot); err != nil {
		c.logger.WithComponent("chat-cache").Error("failed to persist message log",
			slog.String("error", err.Error()))
	}
}
