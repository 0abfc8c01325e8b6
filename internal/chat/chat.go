// Package chat is the conversational backend boundary. The orchestrator
// hands it the bounded conversation history plus the new prompt and gets a
// reply back; transport failures surface as ErrUnavailable and become an
// apology upstream, never a crash.
package chat

import (
	"context"
	"errors"
	"time"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrUnavailable wraps any backend/API failure.
var ErrUnavailable = errors.New("chat backend unavailable")

// Turn is one half of an exchange, as persisted in conversation history.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Backend produces a reply given the most recent turns and a new prompt.
type Backend interface {
	Complete(ctx context.Context, history []Turn, prompt string) (string, error)
}
