package presence

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const redisChannel = "syncflow.presence"

// RedisBus fans broadcast envelopes out across relay processes via Redis
// pub/sub. Every process, the publisher included, receives each envelope on
// its subscription and delivers to its locally connected sockets.
//
// Pub/sub is fire-and-forget: an envelope published while a subscriber is
// reconnecting is lost. That matches the broadcast contract; clients that must
// not miss work fall back to polling the command queue.
type RedisBus struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewRedisBus(rdb *redis.Client, log *slog.Logger) *RedisBus {
	return &RedisBus{rdb: rdb, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, redisChannel, raw).Err()
}

// Subscribe starts a background reader that runs until ctx is canceled.
// It returns once the subscription is confirmed by Redis.
func (b *RedisBus) Subscribe(ctx context.Context, handler func(Envelope)) error {
	sub := b.rdb.Subscribe(ctx, redisChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.log.Warn("presence bus: dropping malformed envelope", "err", err)
					continue
				}
				handler(env)
			}
		}
	}()
	return nil
}
