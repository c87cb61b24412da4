package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/SARVESHVARADKAR123/messenger/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	conversationTTL = 10 * time.Minute
	userTTL         = time.Hour
)

type Cache struct {
	Client *redis.Client
}

func New(addr string) *Cache {
	return &Cache{
		Client: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
	}
}

func convKey(id string) string { return "conv:" + id }
func userKey(id string) string { return "user:" + id }

func (c *Cache) PingContext(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// GetConversation returns nil, nil on a miss.
func (c *Cache) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	val, err := c.Client.Get(ctx, convKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var conv domain.Conversation
	if err := json.Unmarshal(val, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Cache) SetConversation(ctx context.Context, conv *domain.Conversation) error {
	val, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, convKey(conv.ID), val, conversationTTL).Err()
}

func (c *Cache) DeleteConversation(ctx context.Context, id string) error {
	return c.Client.Del(ctx, convKey(id)).Err()
}

// GetUsers returns the cached subset of ids and the ids that missed.
func (c *Cache) GetUsers(ctx context.Context, ids []string) (map[string]domain.User, []string, error) {
	found := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return found, nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}

	vals, err := c.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, ids, err
	}

	var missing []string
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var u domain.User
		if err := json.Unmarshal([]byte(s), &u); err != nil {
			missing = append(missing, ids[i])
			continue
		}
		found[ids[i]] = u
	}
	return found, missing, nil
}

func (c *Cache) SetUsers(ctx context.Context, users map[string]domain.User) error {
	if len(users) == 0 {
		return nil
	}
	pipe := c.Client.Pipeline()
	for id, u := range users {
		b, err := json.Marshal(u)
		if err != nil {
			return err
		}
		pipe.Set(ctx, userKey(id), b, userTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}
