package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// processedTTL bounds how long fast-path dedup markers live. The durable
// ledger in Postgres is the source of truth; markers only short-circuit the
// common redelivery window.
const processedTTL = 7 * 24 * time.Hour

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func processedKey(orderID, variantID string) string {
	return fmt.Sprintf("processed:%s:%s", orderID, variantID)
}

// MarkLineProcessed records a fast-path dedup marker for one event line
func (c *Client) MarkLineProcessed(ctx context.Context, orderID, variantID string) error {
	return c.rdb.SetNX(ctx, processedKey(orderID, variantID), "1", processedTTL).Err()
}

// IsLineProcessed checks the fast-path dedup marker. A miss is not
// authoritative; callers fall through to the durable ledger.
func (c *Client) IsLineProcessed(ctx context.Context, orderID, variantID string) (bool, error) {
	result, err := c.rdb.Exists(ctx, processedKey(orderID, variantID)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// MirrorQuantity publishes the committed quantity of a variant for the
// read-side stock API
func (c *Client) MirrorQuantity(ctx context.Context, variantID string, quantity int) error {
	return c.rdb.HSet(ctx, fmt.Sprintf("stock:%s", variantID), "quantity", quantity).Err()
}

// GetMirroredQuantity returns the mirrored quantity and whether a mirror
// entry exists
func (c *Client) GetMirroredQuantity(ctx context.Context, variantID string) (int, bool, error) {
	val, err := c.rdb.HGet(ctx, fmt.Sprintf("stock:%s", variantID), "quantity").Int()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return val, true, nil
}
