package ticket

import (
	"log/slog"
	"regexp"
	"testing"

	"github.com/crewdesk/realtime/internal/logger"
	"github.com/crewdesk/realtime/internal/storage"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError})
}

var idPattern = regexp.MustCompile(`^TIC-\d+$`)

func TestAddAssignsOpenStatusAndID(t *testing.T) {
	s := NewStore(nil, testLogger())

	first := s.Add(Ticket{
		SenderID:     "user-1",
		SenderName:   "Ana",
		SenderRole:   RoleEmployee,
		ReceiverRole: RoleAdmin,
		CompanyID:    "co-1",
		Subject:      "Broken board",
		Priority:     PriorityHigh,
		Status:       StatusClosed, // forced to Open regardless
	})
	second := s.Add(Ticket{SenderID: "user-2", SenderRole: RoleSales, ReceiverRole: RoleManager})

	if first.Status != StatusOpen || second.Status != StatusOpen {
		t.Errorf("statuses = %s, %s, want Open", first.Status, second.Status)
	}
	if !idPattern.MatchString(first.ID) {
		t.Errorf("id %q does not match TIC-<digits>", first.ID)
	}
	if first.ID == second.ID {
		t.Errorf("ids collide: %s", first.ID)
	}
	if first.CreatedAt == "" {
		t.Error("createdAt not set")
	}

	all := s.All()
	if len(all) != 2 || all[0].ID != second.ID {
		t.Error("newest ticket is not first")
	}
}

func TestAddStampsCreatedAtFromClock(t *testing.T) {
	s := NewStore(nil, testLogger())
	s.nowFunc = func() string { return "2026-08-30T10:00:00Z" }

	got := s.Add(Ticket{
		SenderID:     "user-1",
		ReceiverRole: RoleAdmin,
		CreatedAt:    "1999-01-01T00:00:00Z", // caller-supplied value is discarded
	})

	if got.CreatedAt != "2026-08-30T10:00:00Z" {
		t.Errorf("createdAt = %q, want the clock value", got.CreatedAt)
	}
}

func TestUpdateStatusChangesOnlyTarget(t *testing.T) {
	s := NewStore(nil, testLogger())
	a := s.Add(Ticket{SenderID: "user-1", ReceiverRole: RoleAdmin})
	b := s.Add(Ticket{SenderID: "user-2", ReceiverRole: RoleAdmin})

	s.UpdateStatus(a.ID, StatusResolved)

	for _, tk := range s.All() {
		switch tk.ID {
		case a.ID:
			if tk.Status != StatusResolved {
				t.Errorf("ticket %s status = %s, want Resolved", tk.ID, tk.Status)
			}
		case b.ID:
			if tk.Status != StatusOpen {
				t.Errorf("ticket %s status = %s, want Open", tk.ID, tk.Status)
			}
		}
	}
}

func TestUpdateStatusUnknownIDIsNoOp(t *testing.T) {
	s := NewStore(nil, testLogger())
	s.Add(Ticket{SenderID: "user-1", ReceiverRole: RoleAdmin})

	s.UpdateStatus("TIC-99999", StatusClosed)

	if got := s.All()[0].Status; got != StatusOpen {
		t.Errorf("status = %s after no-op update, want Open", got)
	}
}

func TestQueriesBySenderAndReceiver(t *testing.T) {
	s := NewStore(nil, testLogger())
	s.Add(Ticket{SenderID: "user-1", ReceiverRole: RoleAdmin})
	s.Add(Ticket{SenderID: "user-1", ReceiverRole: RoleManager})
	s.Add(Ticket{SenderID: "user-2", ReceiverRole: RoleAdmin})

	if got := s.ForUser("user-1"); len(got) != 2 {
		t.Errorf("ForUser(user-1) = %d tickets, want 2", len(got))
	}
	if got := s.ForUser("user-3"); len(got) != 0 {
		t.Errorf("ForUser(user-3) = %d tickets, want 0", len(got))
	}
	if got := s.ByReceiver(RoleAdmin); len(got) != 2 {
		t.Errorf("ByReceiver(admin) = %d tickets, want 2", len(got))
	}
	if got := s.ByReceiver(RoleSuperadmin); len(got) != 0 {
		t.Errorf("ByReceiver(superadmin) = %d tickets, want 0", len(got))
	}
}

func TestIDCounterSeedsPastPersistedTickets(t *testing.T) {
	blobs, err := storage.NewBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}

	first := NewStore(blobs, testLogger())
	a := first.Add(Ticket{SenderID: "user-1", ReceiverRole: RoleAdmin})
	b := first.Add(Ticket{SenderID: "user-1", ReceiverRole: RoleAdmin})

	second := NewStore(blobs, testLogger())
	c := second.Add(Ticket{SenderID: "user-1", ReceiverRole: RoleAdmin})

	if c.ID == a.ID || c.ID == b.ID {
		t.Errorf("id %s collides with a persisted ticket", c.ID)
	}
	if len(second.All()) != 3 {
		t.Errorf("reloaded store has %d tickets, want 3", len(second.All()))
	}
}
