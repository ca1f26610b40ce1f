package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/crewdesk/realtime/internal/logger"
	"github.com/crewdesk/realtime/internal/realtime"
)

// NATS subject carrying room broadcasts between hub instances.
const roomEventsSubject = "rooms.events"

// roomEvent is the cross-instance wire format. InstanceID lets each
// subscriber drop its own publications.
type roomEvent struct {
	InstanceID string            `json:"instance_id"`
	Room       string            `json:"room"`
	Envelope   realtime.Envelope `json:"envelope"`
}

// Bridge fans room broadcasts out to the other hub instances via NATS
// pub/sub. Sessions are pinned to the instance that upgraded them, so a
// broadcast must reach every instance holding members of the room.
// Delivery across the bridge is at-most-once and best-effort.
type Bridge struct {
	nc         *nats.Conn
	sub        *nats.Subscription
	instanceID string
	deliver    func(room string, env realtime.Envelope)
	logger     *logger.Logger
}

// NewBridge connects to NATS and subscribes to room broadcasts. The hub
// installs its local delivery callback when it takes ownership of the
// bridge.
func NewBridge(natsURL string, log *logger.Logger) (*Bridge, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(fmt.Sprintf("realtime-hub-%s", logger.GetInstanceID())),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	b := &Bridge{
		nc:         nc,
		instanceID: logger.GetInstanceID(),
		logger:     log,
	}

	sub, err := nc.Subscribe(roomEventsSubject, b.handle)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", roomEventsSubject, err)
	}
	b.sub = sub

	log.WithComponent("nats-bridge").Info("bridge connected",
		slog.String("url", natsURL))
	return b, nil
}

// Publish forwards a room broadcast to the other instances. Publish
// failures are logged and dropped; local delivery already happened.
func (b *Bridge) Publish(room string, env realtime.Envelope) {
	data, err := json.Marshal(roomEvent{
		InstanceID: b.instanceID,
		Room:       room,
		Envelope:   env,
	})
	if err != nil {
		b.logger.WithComponent("nats-bridge").Error("failed to marshal room event",
			slog.String("room", room),
			slog.String("error", err.Error()))
		return
	}

	if err := b.nc.Publish(roomEventsSubject, data); err != nil {
		b.logger.WithComponent("nats-bridge").Warn("failed to publish room event",
			slog.String("room", room),
			slog.String("event", env.Event),
			slog.String("error", err.Error()))
	}
}

func (b *Bridge) handle(msg *nats.Msg) {
	var event roomEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		b.logger.WithComponent("nats-bridge").Warn("dropping malformed room event",
			slog.String("error", err.Error()))
		return
	}

	// Our own publication; local members were already served.
	if event.InstanceID == b.instanceID {
		return
	}

	if b.deliver != nil {
		b.deliver(event.Room, event.Envelope)
	}
}

// Close drains the subscription and closes the NATS connection.
func (b *Bridge) Close() {
	if b.sub != nil {
		b.sub.Unsubscribe()
	}
	if b.nc != nil {
		b.nc.Close()
	}
}
