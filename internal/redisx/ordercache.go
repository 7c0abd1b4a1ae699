package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// OrderCache: cache body JSON order by id. Order immutable, jadi tidak
// perlu invalidation — cukup TTL.
type OrderCache struct {
	RDB *redis.Client
}

func (c *OrderCache) Get(ctx context.Context, orderID string) ([]byte, bool) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderSnapshot, orderID)).Bytes()
	if err != nil || len(b) == 0 {
		return nil, false
	}
	return b, true
}

func (c *OrderCache) Set(ctx context.Context, orderID string, body []byte) {
	_ = c.RDB.Set(ctx, fmt.Sprintf(KeyOrderSnapshot, orderID), body, TTLOrderCache).Err()
}
