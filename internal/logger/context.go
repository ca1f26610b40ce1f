package logger

import (
	"context"
)

// WithUserID adds a user ID to the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// WithRoomID adds a room ID to the context.
func WithRoomID(ctx context.Context, roomID string) context.Context {
	return context.WithValue(ctx, ContextKeyRoomID, roomID)
}

// WithTicketID adds a ticket ID to the context.
func WithTicketID(ctx context.Context, ticketID string) context.Context {
	return context.WithValue(ctx, ContextKeyTicketID, ticketID)
}

// WithOperation adds an operation name to the context.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, ContextKeyOperation, operation)
}
