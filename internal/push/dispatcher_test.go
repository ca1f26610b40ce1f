package push

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"firebase.google.com/go/v4/messaging"

	"github.com/crewdesk/realtime/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: slog.LevelError})
}

type fakeGateway struct {
	sendCalls      int
	multicastCalls int
	lastMessage    *messaging.Message
	lastMulticast  *messaging.MulticastMessage

	sendID   string
	sendErr  error
	batch    *messaging.BatchResponse
	batchErr error
}

func (f *fakeGateway) Send(ctx context.Context, message *messaging.Message) (string, error) {
	f.sendCalls++
	f.lastMessage = message
	return f.sendID, f.sendErr
}

func (f *fakeGateway) SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	f.multicastCalls++
	f.lastMulticast = message
	return f.batch, f.batchErr
}

func newTestDispatcher(gw gateway) *Dispatcher {
	return &Dispatcher{client: gw, logger: testLogger(), enabled: true}
}

func TestSendPushEmptyTokensIsNoOp(t *testing.T) {
	gw := &fakeGateway{}
	d := newTestDispatcher(gw)

	result, err := d.SendPush(context.Background(), nil, Payload{Title: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result, got %+v", result)
	}
	if gw.sendCalls+gw.multicastCalls != 0 {
		t.Error("gateway was called for an empty token set")
	}
}

func TestSendPushBlankTokensAreFiltered(t *testing.T) {
	gw := &fakeGateway{}
	d := newTestDispatcher(gw)

	result, err := d.SendPush(context.Background(), []string{"", "  "}, Payload{Title: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result for all-blank tokens, got %+v", result)
	}
	if gw.sendCalls+gw.multicastCalls != 0 {
		t.Error("gateway was called for all-blank tokens")
	}
}

func TestSendPushSingleToken(t *testing.T) {
	gw := &fakeGateway{sendID: "projects/x/messages/123"}
	d := newTestDispatcher(gw)

	result, err := d.SendPush(context.Background(), []string{" tokA "}, Payload{
		Title: "Ping",
		Body:  "hello",
		Data:  map[string]string{"kind": "message"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gw.sendCalls != 1 || gw.multicastCalls != 0 {
		t.Fatalf("expected exactly one direct send, got %d/%d", gw.sendCalls, gw.multicastCalls)
	}
	if gw.lastMessage.Token != "tokA" {
		t.Errorf("token not trimmed: %q", gw.lastMessage.Token)
	}
	if gw.lastMessage.Notification.Title != "Ping" {
		t.Errorf("title = %q", gw.lastMessage.Notification.Title)
	}
	if result.MessageID != "projects/x/messages/123" || result.SuccessCount != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestSendPushSingleTokenGatewayError(t *testing.T) {
	gw := &fakeGateway{sendErr: errors.New("registration-token-not-registered")}
	d := newTestDispatcher(gw)

	result, err := d.SendPush(context.Background(), []string{"tokA"}, Payload{Title: "t"})
	if err != nil {
		t.Fatalf("gateway error must come back as a value, got error %v", err)
	}
	if result.Error == "" || result.FailureCount != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestSendPushMulticastPartialFailure(t *testing.T) {
	gw := &fakeGateway{
		batch: &messaging.BatchResponse{SuccessCount: 1, FailureCount: 1},
	}
	d := newTestDispatcher(gw)

	result, err := d.SendPush(context.Background(), []string{"tokA", "tokB"}, Payload{Title: "t"})
	if err != nil {
		t.Fatalf("partial failure must not be an error, got %v", err)
	}
	if gw.multicastCalls != 1 || gw.sendCalls != 0 {
		t.Fatalf("expected exactly one multicast, got %d/%d", gw.multicastCalls, gw.sendCalls)
	}
	if len(gw.lastMulticast.Tokens) != 2 {
		t.Errorf("multicast covered %d tokens, want 2", len(gw.lastMulticast.Tokens))
	}
	if result.SuccessCount != 1 || result.FailureCount != 1 {
		t.Errorf("unexpected counts: %+v", result)
	}
	if result.Error != "" {
		t.Errorf("partial failure set Error: %q", result.Error)
	}
}

func TestSendPushMulticastTransportError(t *testing.T) {
	gw := &fakeGateway{batchErr: errors.New("unavailable")}
	d := newTestDispatcher(gw)

	result, err := d.SendPush(context.Background(), []string{"tokA", "tokB"}, Payload{Title: "t"})
	if err != nil {
		t.Fatalf("transport error must come back as a value, got %v", err)
	}
	if result.Error != "unavailable" || result.FailureCount != 2 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestSendPushDisabled(t *testing.T) {
	gw := &fakeGateway{}
	d := &Dispatcher{client: gw, logger: testLogger(), enabled: false}

	result, err := d.SendPush(context.Background(), []string{"tokA"}, Payload{Title: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Errorf("disabled dispatcher returned %+v", result)
	}
	if gw.sendCalls+gw.multicastCalls != 0 {
		t.Error("disabled dispatcher hit the gateway")
	}
}
