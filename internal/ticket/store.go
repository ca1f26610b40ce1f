// Package ticket holds the client's support ticket store: persisted ticket
// records with a caller-driven status lifecycle and role-based queries.
package ticket

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/crewdesk/realtime/internal/logger"
	"github.com/crewdesk/realtime/internal/storage"
)

// Role identifies who filed or should handle a ticket.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleEmployee   Role = "employee"
	RoleManager    Role = "manager"
	RoleSales      Role = "sales"
	RoleSuperadmin Role = "superadmin"
)

// Status is the ticket lifecycle state. Transitions are caller-driven;
// no state machine is enforced beyond the enum.
type Status string

const (
	StatusOpen     Status = "Open"
	StatusPending  Status = "Pending"
	StatusResolved Status = "Resolved"
	StatusClosed   Status = "Closed"
)

// Priority is the caller-assigned urgency.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Ticket is one support ticket. Status is the only field that changes
// after creation.
type Ticket struct {
	ID           string   `json:"id"`
	SenderID     string   `json:"senderId"`
	SenderName   string   `json:"senderName"`
	SenderRole   Role     `json:"senderRole"`
	ReceiverRole Role     `json:"receiverRole"`
	CompanyID    string   `json:"companyId"`
	Subject      string   `json:"subject"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Priority     Priority `json:"priority"`
	Status       Status   `json:"status"`
	CreatedAt    string   `json:"createdAt"` // RFC3339
}

const idPrefix = "TIC-"

func rfc3339Now() string {
	return time.Now().Format(time.RFC3339)
}

// Store is a copy-on-write ticket collection, newest first. Ids carry the
// human-readable TIC- prefix over a monotonic counter, so concurrent Add
// calls can never collide. The counter is seeded past the highest
// persisted id on load.
type Store struct {
	mu      sync.RWMutex
	items   []Ticket
	nextID  uint64
	store   *storage.BlobStore
	log     *logger.Logger
	nowFunc func() string
}

// NewStore creates a store, loading any persisted tickets.
// A nil blob store disables persistence.
func NewStore(blobs *storage.BlobStore, log *logger.Logger) *Store {
	s := &Store{
		nextID:  1,
		store:   blobs,
		log:     log,
		nowFunc: rfc3339Now,
	}

	if blobs != nil {
		if err := blobs.Load(storage.NamespaceTickets, &s.items); err != nil {
			log.WithComponent("ticket-store").Error("failed to load tickets",
				slog.String("error", err.Error()))
		}
	}

	for _, t := range s.items {
		if n, ok := parseID(t.ID); ok && n >= s.nextID {
			s.nextID = n + 1
		}
	}

	return s
}

func parseID(id string) (uint64, bool) {
	if !strings.HasPrefix(id, idPrefix) {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(id, idPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Add prepends a new ticket and returns it. Status is forced to Open and
// CreatedAt to the current time regardless of the input values.
func (s *Store) Add(t Ticket) Ticket {
	s.mu.Lock()
	t.ID = idPrefix + strconv.FormatUint(s.nextID, 10)
	s.nextID++
	t.Status = StatusOpen
	t.CreatedAt = s.nowFunc()

	next := make([]Ticket, 0, len(s.items)+1)
	next = append(next, t)
	next = append(next, s.items...)
	s.items = next
	snapshot := s.items
	s.mu.Unlock()

	s.persist(snapshot)
	return t
}

// UpdateStatus replaces the status of the matching ticket. No transition
// validation is applied; unknown ids are a no-op.
func (s *Store) UpdateStatus(id string, status Status) {
	s.mu.Lock()
	found := false
	next := make([]Ticket, len(s.items))
	for i, t := range s.items {
		if t.ID == id {
			t.Status = status
			found = true
		}
		next[i] = t
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

// ForUser returns all tickets filed by the given user, newest first.
func (s *Store) ForUser(userID string) []Ticket {
	s.mu.RLock()
	snapshot := s.items
	s.mu.RUnlock()

	var out []Ticket
	for _, t := range snapshot {
		if t.SenderID == userID {
			out = append(out, t)
		}
	}
	return out
}

// ByReceiver returns all tickets addressed to the given role, newest first.
func (s *Store) ByReceiver(role Role) []Ticket {
	s.mu.RLock()
	snapshot := s.items
	s.mu.RUnlock()

	var out []Ticket
	for _, t := range snapshot {
		if t.ReceiverRole == role {
			out = append(out, t)
		}
	}
	return out
}

// All returns the current snapshot, newest first. Callers must not mutate
// it.
func (s *Store) All() []Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

func (s *Store) persist(snapshot []Ticket) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(storage.NamespaceTickets, snapshot); err != nil {
		s.log.WithComponent("ticket-store").Error("failed to persist tickets",
			slog.String("error", err.Error()))
	}
}
