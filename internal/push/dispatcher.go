// Package push fans a notification payload out to one or many device
// tokens through Firebase Cloud Messaging. Dispatch is best-effort: blank
// token sets are a silent no-op, partial multicast failure is a reported
// count, and gateway errors come back as values rather than propagating.
package push

import (
	"context"
	"log/slog"
	"strings"

	"firebase.google.com/go/v4/messaging"

	"github.com/crewdesk/realtime/internal/logger"
)

// gateway is the slice of messaging.Client the dispatcher uses.
type gateway interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Dispatcher sends push notifications via FCM. Stateless apart from its
// client handle, so it is safe to invoke concurrently per request.
type Dispatcher struct {
	client  gateway
	logger  *logger.Logger
	enabled bool
}

// NewDispatcher creates a dispatcher. When enabled is false every dispatch
// is a logged no-op, which keeps callers oblivious to the rollout state.
func NewDispatcher(client *messaging.Client, log *logger.Logger, enabled bool) *Dispatcher {
	return &Dispatcher{
		client:  client,
		logger:  log,
		enabled: enabled,
	}
}

// SendPush dispatches the payload to the given tokens.
//
// Blank tokens are filtered out after trimming; an empty remainder returns
// (nil, nil) with no gateway call. A single token issues one direct send,
// several tokens one batched multicast. Failures of either kind are
// captured into the result, never returned as an error.
func (d *Dispatcher) SendPush(ctx context.Context, tokens []string, payload Payload) (*DispatchResult, error) {
	log := d.logger.WithContext(ctx).WithComponent("push-dispatcher")

	valid := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			valid = append(valid, trimmed)
		}
	}
	if len(valid) == 0 {
		log.Debug("no usable tokens, skipping dispatch",
			slog.String("title", payload.Title))
		return nil, nil
	}

	if !d.enabled {
		log.Debug("push notifications disabled, skipping",
			slog.Int("token_count", len(valid)),
			slog.String("title", payload.Title))
		return nil, nil
	}

	if len(valid) == 1 {
		return d.sendSingle(ctx, valid[0], payload), nil
	}
	return d.sendMulticast(ctx, valid, payload), nil
}

func (d *Dispatcher) sendSingle(ctx context.Context, token string, payload Payload) *DispatchResult {
	log := d.logger.WithContext(ctx).WithComponent("push-dispatcher")

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data:  payload.Data,
		Token: token,
	}

	messageID, err := d.client.Send(ctx, message)
	if err != nil {
		log.Warn("push send failed",
			slog.String("token_prefix", tokenPrefix(token)),
			slog.String("error", err.Error()))
		return &DispatchResult{FailureCount: 1, Error: err.Error()}
	}

	log.Info("push sent",
		slog.String("token_prefix", tokenPrefix(token)),
		slog.String("message_id", messageID))
	return &DispatchResult{MessageID: messageID, SuccessCount: 1}
}

func (d *Dispatcher) sendMulticast(ctx context.Context, tokens []string, payload Payload) *DispatchResult {
	log := d.logger.WithContext(ctx).WithComponent("push-dispatcher")

	message := &messaging.MulticastMessage{
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data:   payload.Data,
		Tokens: tokens,
	}

	batch, err := d.client.SendEachForMulticast(ctx, message)
	if err != nil {
		log.Warn("push multicast failed",
			slog.Int("token_count", len(tokens)),
			slog.String("error", err.Error()))
		return &DispatchResult{FailureCount: len(tokens), Error: err.Error()}
	}

	if batch.FailureCount > 0 {
		log.Warn("push multicast partially delivered",
			slog.Int("successful", batch.SuccessCount),
			slog.Int("failed", batch.FailureCount))
	} else {
		log.Info("push multicast delivered",
			slog.Int("successful", batch.SuccessCount))
	}

	return &DispatchResult{
		SuccessCount: batch.SuccessCount,
		FailureCount: batch.FailureCount,
	}
}

func tokenPrefix(token string) string {
	if len(token) > 10 {
		return token[:10] + "..."
	}
	return token
}
