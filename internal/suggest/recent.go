package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	recentKeyPrefix = "suggest:recent:"
	recentMax       = 3
	recentTTL       = 24 * time.Hour
)

// RecentCache keeps each user's last few idea batches in a Redis list so
// refinement can reference them without a Postgres round trip.
type RecentCache struct {
	client *redis.Client
}

func NewRecentCache(client *redis.Client) *RecentCache {
	return &RecentCache{client: client}
}

func (c *RecentCache) key(userID uuid.UUID) string {
	return recentKeyPrefix + userID.String()
}

// Push stores a batch at the head of the user's list and trims the tail.
func (c *RecentCache) Push(ctx context.Context, userID uuid.UUID, ideas []GiftIdea) error {
	data, err := json.Marshal(ideas)
	if err != nil {
		return fmt.Errorf("marshaling ideas: %w", err)
	}

	key := c.key(userID)
	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, recentMax-1)
	pipe.Expire(ctx, key, recentTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("caching recent ideas: %w", err)
	}
	return nil
}

// Latest returns the most recent batch, or nil when none is cached.
func (c *RecentCache) Latest(ctx context.Context, userID uuid.UUID) ([]GiftIdea, error) {
	raw, err := c.client.LIndex(ctx, c.key(userID), 0).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading recent ideas: %w", err)
	}

	var ideas []GiftIdea
	if err := json.Unmarshal([]byte(raw), &ideas); err != nil {
		return nil, fmt.Errorf("unmarshaling recent ideas: %w", err)
	}
	return ideas, nil
}
