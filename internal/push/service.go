package push

import (
	"context"
	"log/slog"

	"github.com/crewdesk/realtime/internal/logger"
)

// tokenSource resolves a user's registered device tokens.
type tokenSource interface {
	UserTokens(ctx context.Context, userID string) ([]TokenInfo, error)
}

// Service resolves a user's devices and dispatches to all of them. The
// origin server invokes it when an action should notify a possibly-offline
// user; it does not depend on any realtime connection.
type Service struct {
	dispatcher *Dispatcher
	registry   tokenSource
	logger     *logger.Logger
}

// NewService creates a push service.
func NewService(dispatcher *Dispatcher, registry tokenSource, log *logger.Logger) *Service {
	return &Service{
		dispatcher: dispatcher,
		registry:   registry,
		logger:     log,
	}
}

// SendToUser fans the payload out to every device the user has registered.
// A user without tokens is a silent no-op. Registry and gateway failures
// are captured into the result.
func (s *Service) SendToUser(ctx context.Context, userID string, payload Payload) (*DispatchResult, error) {
	log := s.logger.WithContext(ctx).WithComponent("push-service")

	infos, err := s.registry.UserTokens(ctx, userID)
	if err != nil {
		log.Warn("token lookup failed, push dropped",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return &DispatchResult{Error: err.Error()}, nil
	}
	if len(infos) == 0 {
		return nil, nil
	}

	tokens := make([]string, 0, len(infos))
	for _, info := range infos {
		tokens = append(tokens, info.Token)
	}

	return s.dispatcher.SendPush(ctx, tokens, payload)
}
