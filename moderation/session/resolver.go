package session

import (
	"context"
	"errors"

	"github.com/jonathanwhen/chaperone/moderation/event"
)

// Resolution failure modes, each with a distinct user-facing retry message.
var (
	ErrServerNotJoined = errors.New("server not joined")
	ErrChannelNotFound = errors.New("channel not found")
	ErrMessageNotFound = errors.New("message not found")
)

// Host-provided content resolution. The moderation core never talks to the
// chat platform itself.
type ContentResolver interface {
	ResolveMessage(ctx context.Context, guildID, channelID, messageID string) (*event.Content, error)
}
