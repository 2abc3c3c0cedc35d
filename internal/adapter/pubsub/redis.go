// Package pubsub carries application change events between API instances over Redis pub/sub.
package pubsub

import (
	"context"
	"encoding/json"
	"log/slog"

	"zro-loans/internal/domain/feed"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "zro:applications:changes"

var _ feed.Publisher = (*RedisPublisher)(nil)

type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, e feed.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, payload).Err()
}

type RedisSubscriber struct {
	rdb     *redis.Client
	channel string
	log     *slog.Logger
}

func NewRedisSubscriber(rdb *redis.Client, channel string, log *slog.Logger) *RedisSubscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisSubscriber{rdb: rdb, channel: channel, log: log}
}

// Run delivers every event to fn until ctx is done. The subscription is
// confirmed before Run starts reading, so events published after ready is
// closed are not missed.
func (s *RedisSubscriber) Run(ctx context.Context, ready chan<- struct{}, fn func(feed.Event)) error {
	sub := s.rdb.Subscribe(ctx, s.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var e feed.Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				s.log.WarnContext(ctx, "drop malformed change event", "err", err)
				continue
			}
			fn(e)
		}
	}
}
