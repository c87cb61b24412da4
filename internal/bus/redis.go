package bus

import (
	"context"

	"github.com/SARVESHVARADKAR123/messenger/internal/observability"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisChannel = "messenger:bus"

// RedisBroker fans bus traffic out over a single Redis pub/sub channel.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (r *RedisBroker) Publish(ctx context.Context, payload []byte) error {
	return r.client.Publish(ctx, redisChannel, payload).Err()
}

func (r *RedisBroker) Subscribe(ctx context.Context, handler func([]byte)) {
	pubsub := r.client.Subscribe(ctx, redisChannel)

	go func() {
		log := observability.GetLogger(ctx)
		log.Info("bus: subscribed to redis channel", zap.String("channel", redisChannel))
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				log.Info("bus: redis subscription stopping: context canceled")
				return
			case msg, ok := <-ch:
				if !ok {
					log.Warn("bus: redis pubsub channel closed")
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()
}

// Close is a no-op: the client is shared and closed by its owner.
func (r *RedisBroker) Close() error { return nil }
