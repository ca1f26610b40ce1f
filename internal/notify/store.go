// Package notify holds the client's notification store: a persisted,
// newest-first set of notifications whose only mutable field is the read
// flag.
package notify

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/crewdesk/realtime/internal/logger"
	"github.com/crewdesk/realtime/internal/storage"
)

// Category classifies a notification for display grouping.
type Category string

const (
	CategoryTask     Category = "task"
	CategoryDeadline Category = "deadline"
	CategoryMessage  Category = "message"
	CategoryComment  Category = "comment"
	CategorySystem   Category = "system"
)

// Notification is one entry in the store. Everything but IsRead is
// immutable after creation. Ordering is newest-first by insertion, not by
// any timestamp value.
type Notification struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Time        string   `json:"time"` // display label, not a parseable timestamp
	IsRead      bool     `json:"isRead"`
	Category    Category `json:"category"`
	RecipientID string   `json:"recipientId"`
}

// Store is a copy-on-write notification set. Every mutation replaces the
// backing slice, so readers holding a snapshot never see partial updates.
type Store struct {
	mu    sync.RWMutex
	items []Notification
	store *storage.BlobStore
	log   *logger.Logger
}

// NewStore creates a store, loading any persisted notifications.
// A nil blob store disables persistence.
func NewStore(blobs *storage.BlobStore, log *logger.Logger) *Store {
	s := &Store{
		store: blobs,
		log:   log,
	}

	if blobs != nil {
		if err := blobs.Load(storage.NamespaceNotifications, &s.items); err != nil {
			log.WithComponent("notification-store").Error("failed to load notifications",
				slog.String("error", err.Error()))
		}
	}

	return s
}

// Add prepends a new notification and returns it. The stored entry always
// starts unread with the relative label "Just now"; any time value on the
// input is ignored.
func (s *Store) Add(n Notification) Notification {
	n.ID = uuid.New().String()
	n.IsRead = false
	n.Time = "Just now"

	s.mu.Lock()
	next := make([]Notification, 0, len(s.items)+1)
	next = append(next, n)
	next = append(next, s.items...)
	s.items = next
	snapshot := s.items
	s.mu.Unlock()

	s.persist(snapshot)
	return n
}

// MarkAsRead flips the matching notification to read. Unknown ids are a
// no-op, not an error; mark-as-read never un-reads.
func (s *Store) MarkAsRead(id string) {
	s.mu.Lock()
	found := false
	next := make([]Notification, len(s.items))
	for i, n := range s.items {
		if n.ID == id {
			n.IsRead = true
			found = true
		}
		next[i] = n
	}
	if !found {
		s.mu.Unlock()
		return
	}
	s.items = next
	snapshot := s.items
	s.mu.Unlock()

	s.persist(snapshot)
}

// MarkAllAsRead flips every notification to read.
func (s *Store) MarkAllAsRead() {
	s.mu.Lock()
	next := make([]Notification, len(s.items))
	for i, n := range s.items {
		n.IsRead = true
		next[i] = n
	}
	s.items = next
	snapshot := s.items
	s.mu.Unlock()

	s.persist(snapshot)
}

// Delete removes the matching notification. Unknown ids are a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	next := make([]Notification, 0, len(s.items))
	for _, n := range s.items {
		if n.ID != id {
			next = append(next, n)
		}
	}
	if len(next) == len(s.items) {
		s.mu.Unlock()
		return
	}
	s.items = next
	snapshot := s.items
	s.mu.Unlock()

	s.persist(snapshot)
}

// All returns the current snapshot, newest first. Callers must not mutate
// it.
func (s *Store) All() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

// Unread returns how many notifications are still unread.
func (s *Store) Unread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.items {
		if !n.IsRead {
			count++
		}
	}
	return count
}

func (s *Store) persist(snapshot []Notification) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(storage.NamespaceNotifications, snapshot); err != nil {
		s.log.WithComponent("notification-store").Error("failed to persist notifications",
			slog.String("error", err.Error()))
	}
}
