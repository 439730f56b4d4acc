package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/model/chat"
)

// ErrSessionNotFound is returned when history is requested for an unknown session.
var ErrSessionNotFound = errors.New("session not found")

// Recorder persists sessions and their messages. LoadMessages returns
// messages in the order they were appended. Implementations must be safe
// for concurrent use.
type Recorder interface {
	SaveSession(ctx context.Context, session chat.Session) error
	AppendMessage(ctx context.Context, msg chat.Message) error
	LoadMessages(ctx context.Context, sessionID string) ([]chat.Message, error)
	Close() error
}
