package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hyuricane/redchat/internal/port"
	"github.com/hyuricane/redchat/pkg/logger"
)

// Client implements port.Store on Redis. It holds three connections: one for
// commands, one dedicated to publishing, and one occupied by SUBSCRIBE,
// which puts a Redis connection into receive-only mode and therefore cannot
// share with command execution.
type Client struct {
	cmd *redis.Client
	pub *redis.Client
	sub *subscriber
	log logger.Logger
}

var _ port.Store = (*Client)(nil)

// NewClient parses the URL and builds the connection trio. The connections
// come up independently and asynchronously; a failed probe is logged rather
// than returned, and surfaces later as a failed operation.
func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	log := logger.FromContext(ctx).WithModule("redis")

	cmd := redis.NewClient(opts)
	pub := redis.NewClient(opts)
	subConn := redis.NewClient(opts)

	probes := map[string]*redis.Client{
		"command":    cmd,
		"publisher":  pub,
		"subscriber": subConn,
	}
	for name, conn := range probes {
		go func(name string, conn *redis.Client) {
			if err := conn.Ping(context.Background()).Err(); err != nil {
				log.Errorf("redis %s connection failed: %v", name, err)
				return
			}
			log.Infof("redis %s connection established", name)
		}(name, conn)
	}

	return &Client{
		cmd: cmd,
		pub: pub,
		sub: newSubscriber(subConn, log),
		log: log,
	}, nil
}

func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.cmd.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *Client) Set(ctx context.Context, key, value string) error {
	return c.cmd.Set(ctx, key, value, 0).Err()
}

func (c *Client) SetNX(ctx context.Context, key, value string) (bool, error) {
	return c.cmd.SetNX(ctx, key, value, 0).Result()
}

func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.cmd.LRange(ctx, key, start, stop).Result()
}

func (c *Client) RPush(ctx context.Context, key string, values ...string) error {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return c.cmd.RPush(ctx, key, args...).Err()
}

func (c *Client) LRem(ctx context.Context, key, value string) error {
	return c.cmd.LRem(ctx, key, 0, value).Err()
}

// PushTrim prepends value and caps the list at limit entries in one
// transaction, so the bounded-history invariant holds under concurrent
// senders.
func (c *Client) PushTrim(ctx context.Context, key, value string, limit int64) error {
	pipe := c.cmd.TxPipeline()
	pipe.LPush(ctx, key, value)
	pipe.LTrim(ctx, key, 0, limit-1)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.cmd.Exists(ctx, key).Result()
	return n > 0, err
}

func (c *Client) Persist(ctx context.Context, keys ...string) error {
	pipe := c.cmd.TxPipeline()
	for _, key := range keys {
		pipe.Persist(ctx, key)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Client) Expire(ctx context.Context, ttl time.Duration, keys ...string) error {
	pipe := c.cmd.TxPipeline()
	for _, key := range keys {
		if ttl <= 0 {
			pipe.Del(ctx, key)
		} else {
			pipe.Expire(ctx, key, ttl)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Client) Publish(ctx context.Context, channel, payload string) error {
	return c.pub.Publish(ctx, channel, payload).Err()
}

func (c *Client) Subscribe(ctx context.Context, channel string, handler port.MessageHandler) (port.Subscription, error) {
	return c.sub.subscribe(ctx, channel, handler)
}

// FlushAll wipes the database. Integration tests only.
func (c *Client) FlushAll(ctx context.Context) error {
	return c.cmd.FlushAll(ctx).Err()
}

func (c *Client) Close() error {
	var errs []error
	if err := c.sub.close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.pub.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.cmd.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
