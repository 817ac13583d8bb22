package question

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/question-bank/pkg/http/ws"
)

// FeedChannel is the Redis channel publish events travel on.
const FeedChannel = "questions:published"

// FeedPublisher announces committed publishes.
type FeedPublisher interface {
	PublishQuestion(ctx context.Context, evt PublishedEvent) error
}

// RedisFeed publishes events on FeedChannel.
type RedisFeed struct {
	client  redis.UniversalClient
	channel string
}

func NewRedisFeed(client redis.UniversalClient) *RedisFeed {
	if client == nil {
		return nil
	}
	return &RedisFeed{client: client, channel: FeedChannel}
}

func (f *RedisFeed) PublishQuestion(ctx context.Context, evt PublishedEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel, data).Err()
}

// FeedBroadcaster listens for publish events and forwards them to every feed socket.
type FeedBroadcaster struct {
	redis   redis.UniversalClient
	hub     *ws.Hub
	channel string
	logger  zerolog.Logger
}

func NewFeedBroadcaster(client redis.UniversalClient, hub *ws.Hub, logger zerolog.Logger) *FeedBroadcaster {
	return &FeedBroadcaster{
		redis:   client,
		hub:     hub,
		channel: FeedChannel,
		logger:  logger.With().Str("component", "feed_broadcaster").Logger(),
	}
}

// Run subscribes to the feed channel and blocks until the context is cancelled.
func (b *FeedBroadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *FeedBroadcaster) forward(payload string) {
	var evt PublishedEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode publish event")
		return
	}

	msg, err := ws.NewMessage(ws.TypeQuestionPublished, ws.QuestionPublishedPayload{
		QuestionID:  evt.QuestionID,
		VersionID:   evt.VersionID,
		PublishedAt: evt.PublishedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to marshal feed payload")
		return
	}
	if err := b.hub.BroadcastAll(msg); err != nil {
		b.logger.Warn().Err(err).Msg("failed to broadcast publish event")
	}
}
