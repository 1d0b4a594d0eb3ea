package main

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jonathanwhen/chaperone/moderation/event"
	"github.com/jonathanwhen/chaperone/moderation/session"
)

// Content resolution backed by a bounded cache of recently consumed channel
// messages. The daemon has no direct chat-platform API access, so message
// links can only be resolved against content it has already seen flow past;
// anything older than the cache window reports as not found, which the
// report interview surfaces as a retryable message to the user.
type messageCache struct {
	messages *lru.Cache[string, *event.Content]
}

func newMessageCache(size int) *messageCache {
	cache, err := lru.New[string, *event.Content](size)
	if err != nil {
		panic(err)
	}
	return &messageCache{messages: cache}
}

func cacheKey(guildID, channelID, messageID string) string {
	return fmt.Sprintf("%s/%s/%s", guildID, channelID, messageID)
}

func (mc *messageCache) Insert(c event.Content) {
	mc.messages.Add(cacheKey(c.Ref.GuildID, c.Ref.ChannelID, c.Ref.MessageID), &c)
}

func (mc *messageCache) ResolveMessage(ctx context.Context, guildID, channelID, messageID string) (*event.Content, error) {
	c, ok := mc.messages.Get(cacheKey(guildID, channelID, messageID))
	if !ok {
		return nil, session.ErrMessageNotFound
	}
	return c, nil
}
