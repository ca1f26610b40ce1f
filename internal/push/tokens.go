package push

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/crewdesk/realtime/internal/logger"
)

// TokenRegistry reads device push tokens from Firestore.
//
// Tokens live at /push_tokens/{user_id} with structure:
//
//	{
//	  tokens: {
//	    deviceId1: {token: "fcm_token_...", deviceId: "device1", lastUpdatedAt: timestamp},
//	    deviceId2: {...}
//	  }
//	}
type TokenRegistry struct {
	firestoreClient *firestore.Client
	logger          *logger.Logger
}

// NewTokenRegistry creates a token registry.
func NewTokenRegistry(firestoreClient *firestore.Client, log *logger.Logger) *TokenRegistry {
	return &TokenRegistry{
		firestoreClient: firestoreClient,
		logger:          log,
	}
}

// UserTokens retrieves all push tokens registered for a user. A user with
// no token document yields an empty slice and no error: an offline user
// with no devices is a valid no-op target, not a failure.
func (r *TokenRegistry) UserTokens(ctx context.Context, userID string) ([]TokenInfo, error) {
	log := r.logger.WithContext(ctx).WithComponent("token-registry")

	doc, err := r.firestoreClient.Collection("push_tokens").Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			log.Debug("no push token document for user",
				slog.String("user_id", userID))
			return nil, nil
		}
		log.Error("failed to fetch push tokens",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to fetch push tokens: %w", err)
	}

	tokensData, ok := doc.Data()["tokens"]
	if !ok {
		log.Debug("tokens field missing for user",
			slog.String("user_id", userID))
		return nil, nil
	}

	tokensMap, ok := tokensData.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid tokens data structure for user %s", userID)
	}

	var tokens []TokenInfo
	for deviceID, tokenData := range tokensMap {
		tokenMap, ok := tokenData.(map[string]interface{})
		if !ok {
			log.Warn("skipping invalid token entry",
				slog.String("device_id", deviceID))
			continue
		}

		token, ok := tokenMap["token"].(string)
		if !ok || token == "" {
			log.Warn("skipping token entry with missing token field",
				slog.String("device_id", deviceID))
			continue
		}

		info := TokenInfo{
			Token:    token,
			DeviceID: deviceID,
		}
		if lastUpdated, ok := tokenMap["lastUpdatedAt"].(string); ok {
			info.LastUpdatedAt = lastUpdated
		}

		tokens = append(tokens, info)
	}

	log.Debug("retrieved push tokens",
		slog.String("user_id", userID),
		slog.Int("token_count", len(tokens)))

	return tokens, nil
}
