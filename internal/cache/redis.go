// Package cache wraps the Redis client used for cached order snapshots.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long an order snapshot stays cached.
const DefaultTTL = time.Hour

// ErrNotConnected is returned by operations on a client that was never
// connected or was already closed.
var ErrNotConnected = errors.New("redis client is not connected")

// OrderKey returns the cache key of an order.
func OrderKey(orderID int64) string {
	return "order:" + strconv.FormatInt(orderID, 10)
}

// Client is a Redis-backed string cache. It has an explicit lifecycle:
// Connect before use, Close on shutdown.
type Client struct {
	url    string
	logger watermill.LoggerAdapter

	mu  sync.RWMutex
	rdb *redis.Client
}

func NewClient(url string, logger watermill.LoggerAdapter) *Client {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Client{url: url, logger: logger}
}

// Connect opens the connection and waits until Redis answers PING, retrying
// with exponential backoff until ctx is done.
func (c *Client) Connect(ctx context.Context) error {
	opts, err := redis.ParseURL(c.url)
	if err != nil {
		return errors.Wrap(err, "invalid redis url")
	}
	rdb := redis.NewClient(opts)

	ping := func() error {
		err := rdb.Ping(ctx).Err()
		if err != nil {
			c.logger.Info("Redis not ready, retrying", watermill.LogFields{"err": err.Error()})
		}
		return err
	}
	if err := backoff.Retry(ping, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		_ = rdb.Close()
		return errors.Wrap(err, "cannot connect to redis")
	}

	c.mu.Lock()
	c.rdb = rdb
	c.mu.Unlock()

	c.logger.Info("Connected to Redis", watermill.LogFields{"addr": opts.Addr})
	return nil
}

// Close releases the connection. Calling it twice is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rdb == nil {
		return nil
	}
	err := c.rdb.Close()
	c.rdb = nil
	c.logger.Info("Disconnected from Redis", nil)
	return err
}

func (c *Client) client() (*redis.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.rdb == nil {
		return nil, ErrNotConnected
	}
	return c.rdb, nil
}

// Get returns the value under key. The bool is false on a miss.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	rdb, err := c.client()
	if err != nil {
		return "", false, err
	}

	value, err := rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		c.logger.Trace("Cache miss", watermill.LogFields{"key": key})
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "cannot get %s", key)
	}

	c.logger.Trace("Cache hit", watermill.LogFields{"key": key})
	return value, true, nil
}

// Set stores value under key for ttl.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	rdb, err := c.client()
	if err != nil {
		return err
	}
	if err := rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrapf(err, "cannot set %s", key)
	}
	c.logger.Trace("Set cache key", watermill.LogFields{"key": key})
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	rdb, err := c.client()
	if err != nil {
		return err
	}
	if err := rdb.Del(ctx, key).Err(); err != nil {
		return errors.Wrapf(err, "cannot delete %s", key)
	}
	c.logger.Trace("Deleted cache key", watermill.LogFields{"key": key})
	return nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	rdb, err := c.client()
	if err != nil {
		return false, err
	}
	n, err := rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, errors.Wrapf(err, "cannot check %s", key)
	}
	return n > 0, nil
}

// Ping reports whether Redis is reachable.
func (c *Client) Ping(ctx context.Context) error {
	rdb, err := c.client()
	if err != nil {
		return err
	}
	return rdb.Ping(ctx).Err()
}
