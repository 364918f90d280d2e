package ai

import (
	"context"

	"github.com/Dmetrikx/goDiscordPersona/internal/session"
)

// Client defines the interface for AI client operations
type Client interface {
	// Complete sends a conversation context and returns the assistant reply
	Complete(ctx context.Context, messages []session.Turn) (string, error)
}
